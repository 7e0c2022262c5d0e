package recorder

import (
	"errors"
	"github.com/sirupsen/logrus"
	"github.com/stydxm/usbrecord/pkg/media"
	"io"
	"os"
	"sync"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeFrame struct {
	id     int
	texts  []string
	closed bool
}

func (f *fakeFrame) Close() error {
	f.closed = true
	return nil
}

// snapshot 写入时的帧内容
type snapshot struct {
	id    int
	texts []string
}

// fakeSource 从 feed 取帧；feed 在 1ms 内没有数据时视为读帧失败。
// frames 非空时按顺序回放后结束。
type fakeSource struct {
	mu     sync.Mutex
	feed   chan int
	frames []int
	pos    int
	fail   bool
	closed bool
}

func (s *fakeSource) NewFrame() media.Frame { return &fakeFrame{} }

func (s *fakeSource) Read(f media.Frame) bool {
	ff := f.(*fakeFrame)
	ff.texts = nil
	s.mu.Lock()
	if s.fail {
		s.mu.Unlock()
		return false
	}
	if s.frames != nil {
		defer s.mu.Unlock()
		if s.pos >= len(s.frames) {
			return false
		}
		ff.id = s.frames[s.pos]
		s.pos++
		return true
	}
	feed := s.feed
	s.mu.Unlock()

	select {
	case id := <-feed:
		ff.id = id
		return true
	case <-time.After(time.Millisecond):
		return false
	}
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeWriter struct {
	mu       sync.Mutex
	path     string
	codec    string
	params   media.Params
	frames   []snapshot
	closed   bool
	failWith error
}

func (w *fakeWriter) Write(f media.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWith != nil {
		return w.failWith
	}
	ff := f.(*fakeFrame)
	w.frames = append(w.frames, snapshot{id: ff.id, texts: append([]string(nil), ff.texts...)})
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) snapshot() []snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]snapshot(nil), w.frames...)
}

type fakeWindow struct {
	shown  int
	keys   []int
	closed bool
}

func (w *fakeWindow) Show(media.Frame) { w.shown++ }

func (w *fakeWindow) WaitKey(int) int {
	if len(w.keys) == 0 {
		return -1
	}
	k := w.keys[0]
	w.keys = w.keys[1:]
	return k
}

func (w *fakeWindow) Close() error {
	w.closed = true
	return nil
}

type fakeBackend struct {
	mu         sync.Mutex
	camera     *fakeSource
	params     media.Params
	openErr    error
	opened     int
	writers    []*fakeWriter
	writerErr  error
	writeFail  error
	images     map[string]int
	window     *fakeWindow
	videos     map[string][]int
	videoParam media.Params
	texts      []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		camera: &fakeSource{feed: make(chan int)},
		params: media.Params{Width: 1280, Height: 720, FPS: 60},
		images: map[string]int{},
		window: &fakeWindow{},
		videos: map[string][]int{},
	}
}

func (b *fakeBackend) OpenCamera(media.Settings) (media.Source, media.Params, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, media.Params{}, b.openErr
	}
	b.opened++
	return b.camera, b.params, nil
}

func (b *fakeBackend) OpenVideo(path string) (media.Source, media.Params, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids, ok := b.videos[path]
	if !ok {
		return nil, media.Params{}, errors.New("no such video")
	}
	return &fakeSource{frames: append([]int{}, ids...)}, b.videoParam, nil
}

func (b *fakeBackend) NewWriter(path, codec string, p media.Params) (media.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writerErr != nil {
		return nil, b.writerErr
	}
	w := &fakeWriter{path: path, codec: codec, params: p, failWith: b.writeFail}
	b.writers = append(b.writers, w)
	return w, nil
}

func (b *fakeBackend) WriteImage(path string, f media.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images[path] = f.(*fakeFrame).id
	return nil
}

func (b *fakeBackend) PutText(f media.Frame, text string, _ media.TextStyle) {
	ff := f.(*fakeFrame)
	ff.texts = append(ff.texts, text)
}

func (b *fakeBackend) NewWindow(string) media.Window { return b.window }

func (b *fakeBackend) lastWriter() *fakeWriter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.writers) == 0 {
		return nil
	}
	return b.writers[len(b.writers)-1]
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(event string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
