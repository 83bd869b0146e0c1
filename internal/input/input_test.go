package input

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"payloadlog.szuro.net/internal/config"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []*pluginPkg.MessageEvent
	status pluginPkg.Status
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ev *pluginPkg.MessageEvent) pluginPkg.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.status
}

func (d *recordingDispatcher) payloads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.events))
	for _, ev := range d.events {
		out = append(out, string(ev.Payload))
	}
	return out
}

// "aGVsbG8=" is "hello", "d29ybGQ=" is "world".
const captureLines = `{"client_id":"abc123","topic":"sensors/temp","payload":"aGVsbG8=","qos":1}
not json
{"client_id":"abc123","topic":"sensors/temp","payload":"d29ybGQ="}
`

func TestParseEvent(t *testing.T) {
	ev, err := parseEvent([]byte(`{"client_id":"abc123","topic":"a/b","payload":"aGVsbG8=","qos":2,"retain":true}`))
	require.NoError(t, err)
	require.Equal(t, &pluginPkg.MessageEvent{
		ClientID: "abc123",
		Topic:    "a/b",
		Payload:  []byte("hello"),
		QoS:      2,
		Retain:   true,
	}, ev)

	_, err = parseEvent([]byte(`{"topic":"a/b"}`))
	require.Error(t, err)
}

func newTestHTTPInput(t *testing.T) (*httptest.Server, *recordingDispatcher) {
	t.Helper()
	return newTestHTTPInputWith(t, &recordingDispatcher{})
}

func newTestHTTPInputWith(t *testing.T, d *recordingDispatcher) (*httptest.Server, *recordingDispatcher) {
	t.Helper()
	mux := http.NewServeMux()
	hi, err := NewHTTPInput(config.PayloadLogConf{}, d, mux)
	require.NoError(t, err)
	require.NoError(t, hi.Prepare())
	hi.Start()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, d
}

func post(t *testing.T, url, encoding string, body []byte) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/messages", bytes.NewReader(body))
	require.NoError(t, err)
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestHTTPInputPlain(t *testing.T) {
	srv, d := newTestHTTPInput(t)

	require.Equal(t, http.StatusOK, post(t, srv.URL, "", []byte(captureLines)))
	require.Equal(t, []string{"hello", "world"}, d.payloads())
}

func TestHTTPInputGzip(t *testing.T) {
	srv, d := newTestHTTPInput(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(captureLines))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	require.Equal(t, http.StatusOK, post(t, srv.URL, "gzip", buf.Bytes()))
	require.Equal(t, []string{"hello", "world"}, d.payloads())
}

func TestHTTPInputZstd(t *testing.T) {
	srv, d := newTestHTTPInput(t)

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(captureLines))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	require.Equal(t, http.StatusOK, post(t, srv.URL, "zstd", buf.Bytes()))
	require.Equal(t, []string{"hello", "world"}, d.payloads())
}

func TestHTTPInputRejects(t *testing.T) {
	srv, d := newTestHTTPInput(t)

	resp, err := http.Get(srv.URL + "/messages")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	require.Equal(t, http.StatusUnsupportedMediaType, post(t, srv.URL, "br", []byte(captureLines)))
	require.Equal(t, http.StatusBadRequest, post(t, srv.URL, "gzip", []byte("not gzip")))
	require.Empty(t, d.payloads())
}

func TestHTTPInputReportsHookFailure(t *testing.T) {
	srv, d := newTestHTTPInputWith(t, &recordingDispatcher{status: pluginPkg.StatusUnknown})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/messages", bytes.NewReader([]byte(captureLines)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "2 messages failed\n", string(body))
	require.Equal(t, []string{"hello", "world"}, d.payloads())
}

func TestHandleLineStatus(t *testing.T) {
	d := &recordingDispatcher{status: pluginPkg.StatusNoMem}
	bi := &baseInput{name: "test", dispatcher: d}
	ctx := context.Background()

	require.Equal(t, pluginPkg.StatusNoMem, bi.handleLine(ctx, []byte(`{"client_id":"abc123","payload":"aGVsbG8="}`)))
	require.Equal(t, pluginPkg.StatusSuccess, bi.handleLine(ctx, []byte("not json")))
	require.Equal(t, pluginPkg.StatusSuccess, bi.handleLine(ctx, nil))
	require.Len(t, d.payloads(), 1)
}

func TestFileInputResumesFromOffset(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "messages.ndjson")
	require.NoError(t, os.WriteFile(capture, []byte(captureLines), 0644))

	conf := config.PayloadLogConf{
		WorkingDir: filepath.Join(dir, "work"),
		File:       config.FileConf{Paths: []string{capture}, Poll: true},
	}

	d := &recordingDispatcher{}
	fi, err := NewFileInput(conf, d)
	require.NoError(t, err)
	require.True(t, fi.IsReady())
	require.NoError(t, fi.Prepare())
	fi.Start()

	require.Eventually(t, func() bool { return len(d.payloads()) == 2 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, fi.Stop())
	require.Equal(t, []string{"hello", "world"}, d.payloads())

	f, err := os.OpenFile(capture, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"client_id":"abc123","topic":"sensors/temp","payload":"YWdhaW4="}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	resumed := &recordingDispatcher{}
	fi, err = NewFileInput(conf, resumed)
	require.NoError(t, err)
	require.NoError(t, fi.Prepare())
	fi.Start()

	require.Eventually(t, func() bool { return len(resumed.payloads()) == 1 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, fi.Stop())
	require.Equal(t, []string{"again"}, resumed.payloads())
}

func TestOffsetEncoding(t *testing.T) {
	require.Equal(t, int64(1337), bytesToInt64(int64ToBytes(1337)))
	require.Equal(t, int64(0), bytesToInt64([]byte{1, 2}))
}
