package video

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrUnreadableSource is returned by NewSampler when the video source
// cannot be opened at all.
var ErrUnreadableSource = errors.New("unreadable video source")

// Frame is one sampled, resized frame. Index counts saved frames from 0,
// not raw decode positions. The caller owns Mat and must Close it.
type Frame struct {
	Index int
	Mat   gocv.Mat
}

// frameReader is the decode handle behind a Sampler. gocv's VideoCapture
// satisfies it; tests substitute synthetic sources.
type frameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Sampler walks a video source, keeps every interval-th decodable frame
// (the first frame is always kept) and resizes kept frames to a fixed
// target box. The sequence is lazy and non-restartable: once a decode
// fails the sampler is exhausted for good. Aspect ratio is not preserved;
// output dimensions are constant for a run.
type Sampler struct {
	reader   frameReader
	interval int
	width    int
	height   int

	raw      gocv.Mat
	pos      int
	saved    int
	done     bool
	duration float64
}

// NewSampler opens path for decoding. A source that cannot be opened, or a
// non-positive interval, fails here rather than lazily mid-iteration.
func NewSampler(path string, interval, width, height int) (*Sampler, error) {
	if interval < 1 {
		return nil, fmt.Errorf("sampling interval must be positive, got %d", interval)
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnreadableSource, path)
	}

	var duration float64
	if fps := vc.Get(gocv.VideoCaptureFPS); fps > 0 {
		duration = vc.Get(gocv.VideoCaptureFrameCount) / fps
	}

	s := newSamplerFromReader(vc, interval, width, height)
	s.duration = duration
	return s, nil
}

func newSamplerFromReader(r frameReader, interval, width, height int) *Sampler {
	return &Sampler{
		reader:   r,
		interval: interval,
		width:    width,
		height:   height,
		raw:      gocv.NewMat(),
	}
}

// Next returns the next sampled frame. ok is false once the source is
// exhausted; a frame that fails to decode ends the sequence, it is not a
// per-frame error.
func (s *Sampler) Next() (Frame, bool) {
	if s.done {
		return Frame{}, false
	}
	for {
		if !s.reader.Read(&s.raw) || s.raw.Empty() {
			s.done = true
			return Frame{}, false
		}
		keep := s.pos%s.interval == 0
		s.pos++
		if !keep {
			continue
		}

		resized := gocv.NewMat()
		gocv.Resize(s.raw, &resized, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)

		frame := Frame{Index: s.saved, Mat: resized}
		s.saved++
		return frame, true
	}
}

// Duration reports the source length in seconds, or 0 when the container
// does not carry timing metadata.
func (s *Sampler) Duration() float64 {
	return s.duration
}

// Close releases the decode handle. Safe to call after exhaustion or when
// abandoning iteration early.
func (s *Sampler) Close() error {
	s.done = true
	s.raw.Close()
	return s.reader.Close()
}
