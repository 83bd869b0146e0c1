package input

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
	"payloadlog.szuro.net/internal/config"
	"payloadlog.szuro.net/internal/logger"
	pluginPkg "payloadlog.szuro.net/pkg/plugin"
)

const HTTP_INPUT = "http"

// HTTPInput accepts NDJSON message events on POST /messages.
type HTTPInput struct {
	baseInput
	mux *http.ServeMux
}

func NewHTTPInput(conf config.PayloadLogConf, dispatcher Dispatcher, mux *http.ServeMux) (*HTTPInput, error) {
	return &HTTPInput{
		baseInput: baseInput{
			name:       HTTP_INPUT,
			config:     conf,
			dispatcher: dispatcher,
		},
		mux: mux,
	}, nil
}

func (hi *HTTPInput) Prepare() error {
	hi.mux.HandleFunc("/messages", hi.handleMessages)
	return nil
}

func (hi *HTTPInput) Start() {
	ndjsonLinesReceived.WithLabelValues(HTTP_INPUT).Add(0)
	ndjsonParseErrors.WithLabelValues(HTTP_INPUT).Add(0)
}

func (hi *HTTPInput) Stop() error {
	return nil
}

func (hi *HTTPInput) IsReady() bool {
	return true // HTTP server is always ready after Start
}

func (hi *HTTPInput) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var bodyReader io.Reader = r.Body
	if ce := r.Header.Get("Content-Encoding"); ce != "" {
		switch strings.ToLower(ce) {
		case "gzip":
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				logger.Error("Failed to create gzip reader", slog.Any("error", err))
				return
			}
			defer gz.Close()
			bodyReader = gz
		case "deflate":
			zr, err := zlib.NewReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				logger.Error("Failed to create zlib/deflate reader", slog.Any("error", err))
				return
			}
			defer zr.Close()
			bodyReader = zr
		case "zstd":
			zr, err := zstd.NewReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				logger.Error("Failed to create zstd reader", slog.Any("error", err))
				return
			}
			defer zr.Close()
			bodyReader = zr
		default:
			w.WriteHeader(http.StatusUnsupportedMediaType)
			logger.Error("Unsupported Content-Encoding", slog.String("encoding", ce))
			return
		}
	}

	failed := 0
	reader := bufio.NewReader(bodyReader)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			logger.Error("Error reading request body", slog.Any("error", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if hi.handleLine(r.Context(), bytes.TrimSpace(line)) != pluginPkg.StatusSuccess {
			failed++
		}

		if err == io.EOF {
			break
		}
	}

	if failed > 0 {
		http.Error(w, fmt.Sprintf("%d messages failed", failed), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
