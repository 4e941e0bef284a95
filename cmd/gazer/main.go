package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/esimov/gaze"
	"github.com/esimov/gaze/landmark"
	"github.com/esimov/gaze/utils"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┬─┐
│ ┬├─┤┌─┘├┤ ├┬┘
└─┘┴ ┴└─┘└─┘┴└─

Webcam gaze estimation, replayed over recorded frames.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	source        = flag.String("in", pipeName, "Source frame, frame directory or - for stdin")
	destination   = flag.String("out", pipeName, "Destination of the JSON lines or - for stdout")
	configFile    = flag.String("config", "", "JSON configuration file")
	workers       = flag.Int("conc", runtime.NumCPU(), "Number of frames to decode concurrently")
	interval      = flag.Duration("interval", gaze.DefaultFrameInterval, "Capture interval between two frames")
	maxWidth      = flag.Int("width", 0, "Downscale the frames wider than this")
	faceCascade   = flag.String("cc", "", "Face detection cascade")
	puplocCascade = flag.String("pc", "", "Pupil localization cascade")
	flpDir        = flag.String("flpc", "", "Facial landmark points cascade directory")
	faceAngle     = flag.Float64("angle", 0.0, "Plane rotated faces angle")
	screenWidth   = flag.Int("screen-width", 0, "Screen width in pixels")
	screenHeight  = flag.Int("screen-height", 0, "Screen height in pixels")
	hold          = flag.Duration("hold", 0, "Dwell time needed to reach the target cell")
	logLevel      = flag.String("log", "info", "Log level (debug, info, warn, error)")
	logJSON       = flag.Bool("json", false, "Log in JSON format")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *faceCascade == "" || *puplocCascade == "" {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nPlease provide the face and the pupil localization cascades!", utils.ErrorMessage))
	}

	cfg := gaze.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = gaze.LoadConfig(*configFile); err != nil {
			fatal("Failed to load the configuration", err)
		}
	}
	if *screenWidth > 0 {
		cfg.Dwell.ScreenWidth = *screenWidth
	}
	if *screenHeight > 0 {
		cfg.Dwell.ScreenHeight = *screenHeight
	}
	if *hold > 0 {
		cfg.Dwell.Hold = utils.Duration{Duration: *hold}
	}
	if err := cfg.Validate(); err != nil {
		fatal("Invalid configuration", err)
	}

	detCfg := landmark.DefaultConfig()
	detCfg.FaceCascade = *faceCascade
	detCfg.PuplocCascade = *puplocCascade
	detCfg.FlpDir = *flpDir
	detCfg.Angle = *faceAngle

	detector, err := landmark.NewPigoDetector(detCfg)
	if err != nil {
		fatal("Failed to initialize the landmark detector", err)
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("◉ GAZER", utils.StatusMessage),
		utils.DecorateText("is replaying the frames...", utils.DefaultMessage))
	spinner := utils.NewSpinner(spinnerText, time.Millisecond*200, true)
	spinner.StopMsg = fmt.Sprintf("%s %s\n",
		utils.DecorateText("◉ GAZER", utils.StatusMessage),
		utils.DecorateText("is replaying the frames... ✔", utils.DefaultMessage))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := &gaze.Executor{
		Detector: detector,
		Config:   cfg,
		Logger:   utils.NewLogger(os.Stderr, *logLevel, *logJSON),
		Spinner:  spinner,
	}
	summary, err := exec.Execute(ctx, &gaze.Ops{
		Src:           *source,
		Dst:           *destination,
		PipeName:      pipeName,
		Workers:       *workers,
		FrameInterval: *interval,
		MaxWidth:      *maxWidth,
	})
	if err != nil {
		spinner.RestoreCursor()
		fatal("Error replaying the frames", err)
	}

	fmt.Fprintf(os.Stderr, "\nFrames: %s, pupils located: %s, dwells: %s\n",
		utils.DecorateText(fmt.Sprint(summary.Frames), utils.SuccessMessage),
		utils.DecorateText(fmt.Sprint(summary.Located), utils.SuccessMessage),
		utils.DecorateText(fmt.Sprint(summary.Dwells), utils.SuccessMessage),
	)
	fmt.Fprintf(os.Stderr, "Execution time: %s\n", utils.DecorateText(utils.FormatTime(summary.Duration), utils.SuccessMessage))
}

func fatal(msg string, err error) {
	log.Fatalf("%s %s",
		utils.DecorateText(msg+":", utils.ErrorMessage),
		utils.DecorateText(err.Error(), utils.DefaultMessage),
	)
}
