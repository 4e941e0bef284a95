package gaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/esimov/gaze/utils"
	"golang.org/x/term"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// DefaultFrameInterval is the time elapsed between two replayed frames,
// matching a 30 fps capture.
const DefaultFrameInterval = time.Second / 30

// SupportedExtensions lists the frame file types accepted by the executor.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

// LandmarkDetector locates the facial landmarks of the most prominent face
// of an image. It returns nil landmarks and a nil error when there is no face.
type LandmarkDetector interface {
	Detect(img *image.NRGBA) (Landmarks, error)
}

// Ops holds the options of a replay.
type Ops struct {
	Src, Dst, PipeName string
	Workers            int
	// FrameInterval is the capture interval of the replayed frames,
	// it drives the dwell timer.
	FrameInterval time.Duration
	// MaxWidth downscales the frames wider than this before analysis. Zero keeps them as they are.
	MaxWidth int
}

// FrameRecord is the JSON line written for every replayed frame.
type FrameRecord struct {
	Frame  string `json:"frame"`
	Index  int    `json:"index"`
	Result Result `json:"result"`
}

// Summary reports the totals of a replay.
type Summary struct {
	Frames   int
	Located  int
	Blinks   int
	Dwells   int
	Duration time.Duration
}

// Executor replays recorded frames through a single gaze session.
type Executor struct {
	Detector LandmarkDetector
	Config   Config
	Logger   *slog.Logger
	Spinner  *utils.Spinner
}

// frame holds a decoded frame together with its landmarks.
type frame struct {
	index int
	path  string
	img   *image.NRGBA
	lm    Landmarks
	err   error
}

// Execute replays the frames found at op.Src and writes one FrameRecord per
// frame to op.Dst. The frames of a directory are decoded and searched for
// faces concurrently, but they reach the session one by one in lexical order.
func (e *Executor) Execute(ctx context.Context, op *Ops) (Summary, error) {
	var summary Summary
	if e.Detector == nil {
		return summary, errors.New("no landmark detector provided")
	}
	logger := e.Logger
	if logger == nil {
		logger = utils.NopLogger()
	}
	if op.FrameInterval <= 0 {
		op.FrameInterval = DefaultFrameInterval
	}
	// Limit the concurrently running workers to maxWorkers.
	if op.Workers <= 0 || op.Workers > maxWorkers {
		op.Workers = runtime.NumCPU()
	}

	clock := utils.NewManualClock(time.Unix(0, 0).UTC())
	session, err := NewSession(e.Config, WithClock(clock), WithLogger(logger))
	if err != nil {
		return summary, err
	}

	dst, err := op.openDst()
	if err != nil {
		return summary, err
	}
	if f, ok := dst.(*os.File); ok && f != os.Stdout {
		defer f.Close()
	}
	enc := json.NewEncoder(dst)

	if e.Spinner != nil {
		e.Spinner.Start()
		defer e.Spinner.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Every frame holds a slot from dispatch until the session processed it,
	// which bounds the frames waiting in the reorder buffer.
	inflight := make(chan struct{}, 2*op.Workers)
	frames, errc, err := e.frames(ctx, op, inflight)
	if err != nil {
		return summary, err
	}

	now := time.Now()
	pending := make(map[int]frame)
	next := 0
	for f := range frames {
		if f.err != nil {
			cancel()
			return summary, f.err
		}
		pending[f.index] = f
		for {
			f, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			<-inflight
			if next > 0 {
				clock.Advance(op.FrameInterval)
			}
			next++

			res := session.Process(f.img, f.lm)
			summary.add(res)
			if err := enc.Encode(FrameRecord{Frame: f.path, Index: f.index, Result: res}); err != nil {
				cancel()
				return summary, fmt.Errorf("unable to write the frame result: %w", err)
			}
			if e.Spinner != nil {
				e.Spinner.SetMessage(fmt.Sprintf("%s %s",
					utils.DecorateText("◉ GAZER", utils.StatusMessage),
					utils.DecorateText(fmt.Sprintf("⇢ replaying frame %d...", summary.Frames), utils.DefaultMessage),
				))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if err := <-errc; err != nil {
		return summary, err
	}
	summary.Duration = time.Since(now)

	logger.Info("replay finished",
		slog.Int("frames", summary.Frames),
		slog.Int("located", summary.Located),
		slog.Int("dwells", summary.Dwells),
		slog.String("rate", utils.FormatRate(summary.Frames, summary.Duration)),
	)
	return summary, nil
}

func (s *Summary) add(res Result) {
	s.Frames++
	if res.PupilsLocated {
		s.Located++
	}
	if res.IsBlinking {
		s.Blinks++
	}
	if res.Dwell.Fired {
		s.Dwells++
	}
}

// frames starts the workers decoding the source frames and returns the
// channel they deliver to. The frames arrive in completion order. A slot of
// inflight is taken before each frame is dispatched and the caller releases
// it once the frame is consumed.
func (e *Executor) frames(ctx context.Context, op *Ops, inflight chan<- struct{}) (<-chan frame, <-chan error, error) {
	out := make(chan frame)
	errc := make(chan error, 1)

	if op.Src == op.PipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		go func() {
			defer close(out)
			errc <- nil
			inflight <- struct{}{}
			f := e.load(0, op.PipeName, os.Stdin, op.MaxWidth)
			select {
			case <-ctx.Done():
			case out <- f:
			}
		}()
		return out, errc, nil
	}

	fs, err := os.Stat(op.Src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load the source: %w", err)
	}
	if !fs.IsDir() {
		if !utils.HasExtension(op.Src, SupportedExtensions) && !utils.IsImage(op.Src) {
			return nil, nil, fmt.Errorf("%v file type not supported", filepath.Ext(op.Src))
		}
		go func() {
			defer close(out)
			errc <- nil
			inflight <- struct{}{}
			f := e.loadFile(0, op.Src, op.MaxWidth)
			select {
			case <-ctx.Done():
			case out <- f:
			}
		}()
		return out, errc, nil
	}

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job)
	paths, walkErr := walkDir(ctx.Done(), op.Src, SupportedExtensions)
	go func() {
		defer close(jobs)
		i := 0
		for p := range paths {
			select {
			case <-ctx.Done():
				return
			case inflight <- struct{}{}:
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, path: p}:
				i++
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(op.Workers)
	for i := 0; i < op.Workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				case out <- e.loadFile(j.index, j.path, op.MaxWidth):
				}
			}
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(out)
		wg.Wait()
		errc <- <-walkErr
	}()
	return out, errc, nil
}

func (e *Executor) loadFile(index int, path string, maxWidth int) frame {
	file, err := os.Open(path)
	if err != nil {
		return frame{index: index, path: path, err: fmt.Errorf("unable to open the frame: %w", err)}
	}
	defer file.Close()
	return e.load(index, path, file, maxWidth)
}

// load decodes the frame and runs the landmark detection on it.
func (e *Executor) load(index int, path string, r io.Reader, maxWidth int) frame {
	f := frame{index: index, path: path}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		f.err = fmt.Errorf("could not decode %s: %w", path, err)
		return f
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	f.img = imgToNRGBA(img)

	f.lm, err = e.Detector.Detect(f.img)
	if err != nil {
		f.err = fmt.Errorf("landmark detection failed on %s: %w", path, err)
	}
	return f
}

// openDst opens the destination of the frame records.
func (op *Ops) openDst() (io.Writer, error) {
	if op.Dst == op.PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return os.Stdout, nil
	}
	dst, err := os.OpenFile(op.Dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to create the destination file: %w", err)
	}
	return dst, nil
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported file to a new channel.
// The files are sent in lexical order. It finishes in case the done channel is getting closed.
func walkDir(
	done <-chan struct{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, f os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !f.Mode().IsRegular() || !utils.HasExtension(f.Name(), srcExts) {
				return nil
			}
			select {
			case <-done:
				return errors.New("directory walk cancelled")
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}
