package source

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"fallwatch/common/config"
	"fallwatch/common/log"

	"github.com/pkg/errors"
)

// FileSource decodes a video file into raw RGB frames through an ffmpeg
// subprocess. Frames are produced at the file's native frame rate; the
// pipeline paces consumption with Interval.
type FileSource struct {
	path string

	cmd    *exec.Cmd
	ctx    context.Context
	cancel context.CancelFunc
	stdout io.ReadCloser

	mutex     sync.Mutex
	isRunning bool

	frameChan chan *Frame
	errorChan chan error

	frameWidth    int
	frameHeight   int
	bytesPerFrame int
	fps           float64
}

// NewFileSource creates a file source for the given video path
func NewFileSource(path string) *FileSource {
	ctx, cancel := context.WithCancel(context.Background())

	return &FileSource{
		path:      path,
		ctx:       ctx,
		cancel:    cancel,
		frameChan: make(chan *Frame, 5), // buffer 5 frames
		errorChan: make(chan error, 5),
	}
}

// probeResult mirrors the ffprobe -of json output we care about
type probeResult struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// probe detects resolution and frame rate with ffprobe. A missing or
// unparsable frame rate falls back to the default; a missing resolution is
// fatal since raw frame reads depend on it.
func (fs *FileSource) probe() error {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate",
		"-of", "json",
		fs.path,
	)

	output, err := cmd.Output()
	if err != nil {
		return errors.Wrapf(err, "ffprobe failed for %s", fs.path)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return errors.Wrap(err, "failed to parse ffprobe output")
	}

	if len(result.Streams) == 0 {
		return fmt.Errorf("no video stream found in %s", fs.path)
	}

	stream := result.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d in %s", stream.Width, stream.Height, fs.path)
	}

	fs.frameWidth = stream.Width
	fs.frameHeight = stream.Height
	fs.bytesPerFrame = stream.Width * stream.Height * 3 // RGB24

	fs.fps = parseFrameRate(stream.AvgFrameRate)
	if fs.fps <= 0 {
		log.Warn(fmt.Sprintf("could not read frame rate from %s, using default %d FPS", fs.path, config.DefaultFileFPS))
		fs.fps = config.DefaultFileFPS
	}

	log.Info(fmt.Sprintf("detected video: %dx%d @ %.2f FPS (%s)", fs.frameWidth, fs.frameHeight, fs.fps, fs.path))
	return nil
}

// parseFrameRate parses ffprobe's fractional frame rate, e.g. "30000/1001"
func parseFrameRate(rate string) float64 {
	if rate == "" || rate == "0/0" {
		return 0
	}

	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}

	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// Open probes the file and starts the decoding process
func (fs *FileSource) Open() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if fs.isRunning {
		return fmt.Errorf("file source already open")
	}

	if err := fs.probe(); err != nil {
		return err
	}

	fs.cmd = exec.CommandContext(fs.ctx, "ffmpeg",
		"-v", "error",
		"-i", fs.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)

	stdout, err := fs.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to create stdout pipe")
	}
	fs.stdout = stdout

	if err := fs.cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start ffmpeg")
	}

	fs.isRunning = true

	go fs.readFrames()

	return nil
}

// readFrames reads raw frames from the ffmpeg stdout pipe
func (fs *FileSource) readFrames() {
	defer func() {
		fs.mutex.Lock()
		fs.isRunning = false
		fs.mutex.Unlock()
		close(fs.frameChan)
	}()

	buffer := make([]byte, fs.bytesPerFrame)

	for {
		select {
		case <-fs.ctx.Done():
			return
		default:
			_, err := io.ReadFull(fs.stdout, buffer)
			if err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					return
				}
				select {
				case fs.errorChan <- fmt.Errorf("failed to read frame from ffmpeg: %v", err):
				default:
				}
				return
			}

			frame := &Frame{
				Image:     rgbaFromRGB24(buffer, fs.frameWidth, fs.frameHeight),
				Timestamp: time.Now(),
			}

			select {
			case fs.frameChan <- frame:
			case <-fs.ctx.Done():
				return
			}
		}
	}
}

// rgbaFromRGB24 converts packed RGB24 data into an RGBA image
func rgbaFromRGB24(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	src := 0
	dst := 0
	for i := 0; i < width*height; i++ {
		img.Pix[dst] = data[src]
		img.Pix[dst+1] = data[src+1]
		img.Pix[dst+2] = data[src+2]
		img.Pix[dst+3] = 255
		src += 3
		dst += 4
	}

	return img
}

// Next returns the next decoded frame, blocking up to timeout. io.EOF marks
// the end of the file.
func (fs *FileSource) Next(timeout time.Duration) (*Frame, error) {
	select {
	case frame, ok := <-fs.frameChan:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case err := <-fs.errorChan:
		return nil, err
	case <-time.After(timeout):
		return nil, ErrFrameTimeout
	case <-fs.ctx.Done():
		return nil, io.EOF
	}
}

// Interval is the per-frame delay derived from the file's frame rate
func (fs *FileSource) Interval() time.Duration {
	fps := fs.fps
	if fps <= 0 {
		fps = config.DefaultFileFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// Close stops the decoding process, force-killing it after a bounded wait
func (fs *FileSource) Close() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	fs.cancel()

	if fs.cmd != nil && fs.cmd.Process != nil {
		done := make(chan error, 1)
		go func() {
			done <- fs.cmd.Wait()
		}()

		select {
		case <-time.After(5 * time.Second):
			fs.cmd.Process.Kill()
			<-done
		case <-done:
		}
		fs.cmd = nil
	}

	fs.isRunning = false
	return nil
}
