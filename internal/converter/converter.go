package converter

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/emersion/go-mbox"
	"github.com/sirupsen/logrus"

	"github.com/felo/eml2text/internal/journal"
	"github.com/felo/eml2text/internal/mimeword"
	"github.com/felo/eml2text/internal/parser"
	"github.com/felo/eml2text/internal/render"
	"github.com/felo/eml2text/internal/scanner"
)

// StdinName is the name used for input read from standard input
const StdinName = "<stdin>"

// Converter turns raw messages into rendered text, one input at a time
type Converter struct {
	renderer      *render.Renderer
	dec           *mimeword.Decoder
	log           *logrus.Logger
	journal       *journal.Journal
	skipConverted bool
	mbox          bool

	expand func(args []string, onError func(path string, err error)) []string
}

// New creates a converter writing through renderer
func New(renderer *render.Renderer, dec *mimeword.Decoder, log *logrus.Logger) *Converter {
	return &Converter{
		renderer: renderer,
		dec:      dec,
		log:      log,
		expand:   scanner.Expand,
	}
}

// WithJournal records every conversion in j. With skip set, inputs already
// converted with identical content are skipped.
func (c *Converter) WithJournal(j *journal.Journal, skip bool) *Converter {
	c.journal = j
	c.skipConverted = skip && j != nil
	return c
}

// WithMbox makes the converter split every input into mbox messages
func (c *Converter) WithMbox(enabled bool) *Converter {
	c.mbox = enabled
	return c
}

// Result contains statistics about a conversion run
type Result struct {
	TotalFound  int
	Converted   int
	Skipped     int
	Failed      int
	FailedFiles []string
}

// OK reports whether no input failed
func (r *Result) OK() bool {
	return r.Failed == 0
}

func (r *Result) add(name string, status convertStatus) {
	r.TotalFound++
	switch status {
	case statusConverted:
		r.Converted++
	case statusSkipped:
		r.Skipped++
	case statusFailed:
		r.Failed++
		r.FailedFiles = append(r.FailedFiles, name)
	}
}

type convertStatus int

const (
	statusConverted convertStatus = iota
	statusSkipped
	statusFailed
)

// ConvertFiles converts every file named in args, expanding directories to
// the .eml files below them. A failing input, including a directory that
// cannot be scanned, is logged and counted and the run continues; the
// returned error is reserved for problems that end the run, such as a
// failing output writer.
func (c *Converter) ConvertFiles(w io.Writer, args []string) (*Result, error) {
	result := &Result{FailedFiles: make([]string, 0)}

	files := c.expand(args, func(path string, err error) {
		c.log.Errorf("failed to scan %s: %v", path, err)
		result.add(path, statusFailed)
		c.record(&journal.Entry{FilePath: path, Status: journal.StatusFailed, Error: err.Error()})
	})

	for i, path := range files {
		c.log.Debugf("Processing file %d/%d: %s", i+1, len(files), path)

		raw, err := readFile(path)
		if err != nil {
			c.logReadError(path, err)
			result.add(path, statusFailed)
			c.record(&journal.Entry{FilePath: path, Status: journal.StatusFailed, Error: err.Error()})
			continue
		}

		if err := c.convertInput(w, path, raw, result); err != nil {
			return result, err
		}
	}

	c.log.Debugf("Conversion complete: %d converted, %d skipped, %d failed",
		result.Converted, result.Skipped, result.Failed)

	return result, nil
}

// ConvertStream converts the message (or mbox, in mbox mode) read from r
func (c *Converter) ConvertStream(w io.Writer, name string, r io.Reader) (*Result, error) {
	result := &Result{FailedFiles: make([]string, 0)}

	raw, err := io.ReadAll(r)
	if err != nil {
		c.log.WithField("file", name).Errorf("failed to read input: %v", err)
		result.add(name, statusFailed)
		return result, nil
	}

	if err := c.convertInput(w, name, raw, result); err != nil {
		return result, err
	}
	return result, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (c *Converter) logReadError(path string, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.log.Errorf("%s not found", path)
	case errors.Is(err, fs.ErrPermission):
		c.log.Errorf("permission error for read file %s", path)
	default:
		c.log.Errorf("failed to read %s: %v", path, err)
	}
}

// convertInput converts raw as one message, or as every message of an mbox
func (c *Converter) convertInput(w io.Writer, name string, raw []byte, result *Result) error {
	if !c.mbox {
		return c.convertMessage(w, name, raw, result)
	}

	// go-mbox hands out every line with a CRLF ending
	lf := !bytes.Contains(raw, []byte("\r\n"))

	reader := mbox.NewReader(bytes.NewReader(raw))
	for n := 1; ; n++ {
		r, err := reader.NextMessage()
		if err == io.EOF {
			return nil
		}

		msgName := fmt.Sprintf("%s#%d", name, n)
		if err != nil {
			c.log.WithField("file", name).Errorf("failed to read mbox message %d: %v", n, err)
			result.add(msgName, statusFailed)
			return nil
		}

		data, err := io.ReadAll(r)
		if err != nil {
			c.log.WithField("file", name).Errorf("failed to read mbox message %d: %v", n, err)
			result.add(msgName, statusFailed)
			return nil
		}

		if lf {
			data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
		}

		if err := c.convertMessage(w, msgName, data, result); err != nil {
			return err
		}
	}
}

// convertMessage renders one message and copies it to w only once it is
// complete, so a failing message leaves no partial output behind.
func (c *Converter) convertMessage(w io.Writer, name string, raw []byte, result *Result) error {
	logger := c.log.WithField("file", name)

	if len(bytes.TrimSpace(raw)) == 0 {
		logger.Debug("Empty input, nothing to convert")
		result.add(name, statusSkipped)
		return nil
	}

	sum := sha256.Sum256(raw)
	entry := &journal.Entry{
		FilePath: name,
		Digest:   hex.EncodeToString(sum[:]),
		FileSize: int64(len(raw)),
	}

	if c.skipConverted {
		done, err := c.journal.Converted(name, entry.Digest)
		if err != nil {
			logger.Warnf("Error checking journal: %v", err)
		} else if done {
			logger.Debug("Already converted, skipping")
			result.add(name, statusSkipped)
			entry.Status = journal.StatusSkipped
			c.record(entry)
			return nil
		}
	}

	var buf bytes.Buffer
	if err := c.convert(&buf, logger, raw, entry); err != nil {
		var malformed *parser.MalformedMessageError
		if errors.As(err, &malformed) {
			logger.Error(err)
		} else {
			logger.Errorf("unexpected error: %v", err)
		}
		result.add(name, statusFailed)
		entry.Status, entry.Error = journal.StatusFailed, err.Error()
		c.record(entry)
		return nil
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	result.add(name, statusConverted)
	entry.Status = journal.StatusConverted
	c.record(entry)
	return nil
}

func (c *Converter) convert(w io.Writer, logger *logrus.Entry, raw []byte, entry *journal.Entry) error {
	msg, err := parser.Parse(raw)
	if err != nil {
		return err
	}

	for _, leaf := range msg.Leaves {
		if leaf.ReadErr != nil {
			logger.WithField("content_type", leaf.MediaType).
				Warnf("part truncated, keeping %d bytes: %v", len(leaf.Body), leaf.ReadErr)
		}
	}

	parts := parser.Extract(msg, c.dec)
	for _, part := range parts {
		if err := part.FallbackError(); err != nil {
			logger.Warn(err)
		}
		if part.Attachment {
			entry.AttachmentCount++
		}
	}
	entry.PartCount = len(parts)

	if subject, ok := msg.Header.Get("Subject"); ok {
		entry.Subject = c.dec.Decode(subject)
	}

	if err := c.renderer.Render(w, msg, parts); err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}
	return nil
}

// record stores entry in the journal, if any. Journal failures never fail
// the conversion.
func (c *Converter) record(entry *journal.Entry) {
	if c.journal == nil {
		return
	}
	if _, err := c.journal.Record(entry); err != nil {
		c.log.WithField("file", entry.FilePath).Warnf("Error recording conversion: %v", err)
	}
}
