package gaze

import (
	"image"
	"log/slog"

	"github.com/esimov/gaze/utils"
	"github.com/google/uuid"
)

// Session tracks the gaze of a single user across consecutive frames.
// It owns the threshold calibration and the dwell timer, which is why the
// frames of one video stream must go through the same session.
// A Session is not safe for concurrent use.
type Session struct {
	ID string

	cfg         Config
	calibration *Calibration
	locator     *IrisLocator
	dwell       *DwellTracker
	logger      *slog.Logger
	clock       utils.Clock
}

// Option customizes a Session.
type Option func(*Session)

// WithClock sets the clock used to time the dwell events.
func WithClock(c utils.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// WithLogger sets the logger used to report the session events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession validates the configuration and creates a new session.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		ID:     uuid.NewString(),
		cfg:    cfg,
		logger: utils.NopLogger(),
		clock:  utils.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = utils.NopLogger()
	}
	s.logger = s.logger.With("session", s.ID)

	s.locator = NewIrisLocator(cfg.Locator)
	s.calibration = NewCalibration(cfg.Calibration, s.locator)
	s.dwell = NewDwellTracker(cfg.Dwell, s.clock)
	return s, nil
}

// Config returns the configuration of the session.
func (s *Session) Config() Config {
	return s.cfg
}

// Calibration exposes the threshold calibration of the session.
func (s *Session) Calibration() *Calibration {
	return s.calibration
}

// Process analyzes one frame together with the facial landmarks detected on
// it. The landmarks and the reported pupils share the coordinate space of
// the frame bounds, which do not have to start at (0, 0).
// Missing landmarks or degenerate eye geometry never produce an error,
// the affected values are simply absent from the result.
func (s *Session) Process(frame image.Image, lm Landmarks) Result {
	var res Result
	if frame != nil && lm.Valid() {
		origin := frame.Bounds().Min
		src := imgToNRGBA(frame)
		local := lm.Sub(origin)

		left := s.analyzeEye(src, local, LeftEye)
		right := s.analyzeEye(src, local, RightEye)
		res = Aggregate(left, right, s.cfg.Gaze)
		if res.PupilLeft != nil {
			*res.PupilLeft = res.PupilLeft.Add(origin)
		}
		if res.PupilRight != nil {
			*res.PupilRight = res.PupilRight.Add(origin)
		}
	}

	p, ok := s.dwell.GazePoint(res)
	res.Dwell = s.dwell.Track(p, ok)
	if res.Dwell.Fired {
		s.logger.Info("dwell target reached",
			slog.Any("cell", TargetCell),
			slog.Duration("elapsed", res.Dwell.Elapsed),
		)
	}
	return res
}

// Reset starts the session over: the calibration is discarded and the
// dwell timer is cleared.
func (s *Session) Reset() {
	s.calibration.Reset()
	s.dwell.Reset()
	s.logger.Debug("session reset")
}

func (s *Session) analyzeEye(src *image.NRGBA, lm Landmarks, side Side) Eye {
	eye := Eye{Side: side, Blink: EyeBlinkRatio(lm, side)}

	region, ok := IsolateEye(src, lm, side, s.cfg.Region.Margin)
	if !ok {
		return eye
	}
	eye.Region, eye.Isolated = region, true

	if !s.calibration.Complete(side) {
		s.calibration.Evaluate(region, side)
		if s.calibration.Complete(side) {
			s.logger.Debug("calibration complete",
				slog.String("eye", side.String()),
				slog.Int("threshold", s.calibration.Threshold(side)),
			)
		}
	}
	eye.Pupil = s.locator.Locate(region, s.calibration.Threshold(side))
	return eye
}
