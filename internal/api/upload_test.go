package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	fhttp "github.com/bogdanfinn/fhttp"

	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/models"
)

// fakeDoer records the request and answers with a canned response
type fakeDoer struct {
	status int
	body   string
	err    error

	calls     int
	field     string
	fileName  string
	fileType  string
	fileBytes []byte
	url       string
}

func (d *fakeDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	d.calls++
	d.url = req.URL.String()

	_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err == nil {
		mr := multipart.NewReader(req.Body, params["boundary"])
		if part, err := mr.NextPart(); err == nil {
			d.field = part.FormName()
			d.fileName = part.FileName()
			d.fileType = part.Header.Get("Content-Type")
			d.fileBytes, _ = io.ReadAll(part)
		}
	}

	if d.err != nil {
		return nil, d.err
	}
	status := d.status
	if status == 0 {
		status = 200
	}
	return &fhttp.Response{
		StatusCode: status,
		Header:     make(fhttp.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const envelopeAnalysis = `{"candidates":[{"content":{"parts":[{"text":"A cat on a sofa."}]}}]}`

func TestImageAnalyzer_AnalyzeFile(t *testing.T) {
	doer := &fakeDoer{body: `{"success":true,"aiResponse":` + quoteJSON(envelopeAnalysis) + `}`}
	analyzer := NewImageAnalyzer(doer, "http://localhost:8080/image-analyze/image")

	path := writeImage(t, "cat.png", []byte("\x89PNG fake"))
	reply, err := analyzer.AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}

	if !reply.OK() || reply.Text != "A cat on a sofa." {
		t.Errorf("reply = %+v", reply)
	}
	if doer.field != "image" {
		t.Errorf("form field = %q, want image", doer.field)
	}
	if doer.fileName != "cat.png" || doer.fileType != "image/png" {
		t.Errorf("file part = %s (%s)", doer.fileName, doer.fileType)
	}
	if !bytes.Equal(doer.fileBytes, []byte("\x89PNG fake")) {
		t.Errorf("uploaded bytes = %q", doer.fileBytes)
	}
	if doer.url != "http://localhost:8080/image-analyze/image" {
		t.Errorf("url = %s", doer.url)
	}
}

func TestImageAnalyzer_Responses(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		kind    models.ReplyKind
		text    string
		wantErr bool
	}{
		{
			name: "object response",
			body: `{"success":true,"aiResponse":` + envelopeAnalysis + `}`,
			kind: models.ReplyText,
			text: "A cat on a sofa.",
		},
		{
			name: "plain text response",
			body: `{"success":true,"aiResponse":"Just a dog."}`,
			kind: models.ReplyText,
			text: "Just a dog.",
		},
		{
			name: "json without text",
			body: `{"success":true,"aiResponse":"{\"candidates\":[]}"}`,
			kind: models.ReplyMissingText,
			text: apierrors.PlaceholderNoDesc,
		},
		{
			name: "server failure",
			body: `{"success":false,"error":"model overloaded"}`,
			kind: models.ReplyFailed,
			text: "Error: model overloaded",
		},
		{
			name:    "not json",
			body:    `<html>oops</html>`,
			kind:    models.ReplyMalformed,
			wantErr: true,
		},
		{
			name:    "http error with html body",
			body:    `Bad Gateway`,
			status:  502,
			kind:    models.ReplyFailed,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &fakeDoer{body: tt.body, status: tt.status}
			analyzer := NewImageAnalyzer(doer, "")

			reply, err := analyzer.AnalyzeReader(context.Background(),
				strings.NewReader("img"), "x.jpg", "image/jpeg")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if reply.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", reply.Kind, tt.kind)
			}
			if tt.text != "" && reply.Text != tt.text {
				t.Errorf("text = %q, want %q", reply.Text, tt.text)
			}
			if tt.wantErr && !strings.HasPrefix(reply.Text, apierrors.PlaceholderUploadPrefix) {
				t.Errorf("failure text = %q, want upload placeholder", reply.Text)
			}
		})
	}
}

func TestImageAnalyzer_TransportError(t *testing.T) {
	doer := &fakeDoer{err: errors.New("connection refused")}
	analyzer := NewImageAnalyzer(doer, "http://127.0.0.1:1/up")

	reply, err := analyzer.AnalyzeReader(context.Background(), strings.NewReader("x"), "a.gif", "image/gif")
	if err == nil {
		t.Fatal("expected error")
	}
	if reply.Text != "Error uploading image: connection refused" {
		t.Errorf("text = %q", reply.Text)
	}
	if doer.calls != 1 {
		t.Errorf("calls = %d, uploads must not be retried", doer.calls)
	}
}

func TestImageAnalyzer_Validation(t *testing.T) {
	doer := &fakeDoer{body: `{"success":true,"aiResponse":"x"}`}
	analyzer := NewImageAnalyzer(doer, "")

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeImage(t, "notes.txt", []byte("hello"))
		reply, err := analyzer.AnalyzeFile(context.Background(), path)
		if !errors.Is(err, apierrors.ErrUnsupportedImage) {
			t.Errorf("err = %v, want ErrUnsupportedImage", err)
		}
		if !strings.HasPrefix(reply.Text, apierrors.PlaceholderUploadPrefix) {
			t.Errorf("text = %q", reply.Text)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := analyzer.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("too large", func(t *testing.T) {
		big := bytes.NewReader(make([]byte, MaxImageSize+1))
		_, err := analyzer.AnalyzeReader(context.Background(), big, "big.png", "image/png")
		if !apierrors.IsUploadError(err) {
			t.Errorf("err = %v, want UploadError", err)
		}
	})

	if doer.calls != 0 {
		t.Errorf("invalid uploads reached the server %d times", doer.calls)
	}
}

func TestDetectImageType(t *testing.T) {
	for name, want := range map[string]string{
		"a.jpg":  "image/jpeg",
		"a.JPEG": "image/jpeg",
		"a.png":  "image/png",
		"a.gif":  "image/gif",
		"a.webp": "image/webp",
	} {
		got, err := DetectImageType(name)
		if err != nil || got != want {
			t.Errorf("DetectImageType(%s) = %s, %v; want %s", name, got, err, want)
		}
	}

	if _, err := DetectImageType("a.bmp"); err == nil {
		t.Error("expected error for bmp")
	}
}

func quoteJSON(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
