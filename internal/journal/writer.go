// Package journal archives a simulated session's command traffic to
// disk so failed validation runs can be inspected offline: a
// snappy-framed JSONL log of every recorded command plus a compact
// zstd-compressed binary timeline for tooling.
package journal

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

var sessionCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

const (
	commandsFile = "commands.jsonl.sz"
	timelineFile = "timeline.bin.zst"
	manifestFile = "manifest.json"
)

// timelineRowSize is the fixed encoding of one timeline point:
// device index, offset ms, intensity bits, all little endian.
const timelineRowSize = 4 + 8 + 8

// Manifest describes the bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version      int    `json:"version"`
	CreatedAt    string `json:"created_at"`
	CommandsPath string `json:"commands_path"`
	TimelinePath string `json:"timeline_path"`
}

// Writer streams session artefacts into a per-session directory.
type Writer struct {
	mu             sync.Mutex
	dir            string
	now            func() time.Time
	commandFile    *os.File
	commandStream  *snappy.Writer
	timelineFile   *os.File
	timelineStream *zstd.Encoder
}

// NewWriter prepares the session directory and opens compressed sinks.
// A nil clock defaults to time.Now.
func NewWriter(root, sessionID string, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("journal root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sessionCleaner.ReplaceAllString(sessionID, "")
	if cleaned == "" {
		cleaned = "session"
	}
	created := clock().UTC()
	folder := fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z"))
	path := filepath.Join(root, folder)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	commandFile, err := os.Create(filepath.Join(path, commandsFile))
	if err != nil {
		return nil, Manifest{}, err
	}
	commandStream := snappy.NewBufferedWriter(commandFile)

	timelineFh, err := os.Create(filepath.Join(path, timelineFile))
	if err != nil {
		commandFile.Close()
		return nil, Manifest{}, err
	}
	timelineStream, err := zstd.NewWriter(timelineFh)
	if err != nil {
		commandStream.Close()
		commandFile.Close()
		timelineFh.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:      1,
		CreatedAt:    created.Format(time.RFC3339Nano),
		CommandsPath: commandsFile,
		TimelinePath: timelineFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(path, manifestFile), data, 0o644)
	}
	if err != nil {
		timelineStream.Close()
		timelineFh.Close()
		commandStream.Close()
		commandFile.Close()
		return nil, Manifest{}, err
	}

	return &Writer{
		dir:            path,
		now:            clock,
		commandFile:    commandFile,
		commandStream:  commandStream,
		timelineFile:   timelineFh,
		timelineStream: timelineStream,
	}, manifest, nil
}

// Directory exposes the directory backing the bundle.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// AppendCommand writes one JSON line to the compressed command log.
func (w *Writer) AppendCommand(deviceIndex uint32, kind string, offsetMs int64, payload []byte) error {
	if w == nil {
		return fmt.Errorf("journal writer not initialised")
	}
	captured := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()

	record := struct {
		DeviceIndex uint32 `json:"device_index"`
		Kind        string `json:"kind"`
		OffsetMs    int64  `json:"offset_ms"`
		CapturedAt  string `json:"captured_at"`
		PayloadB64  string `json:"payload_b64"`
	}{
		DeviceIndex: deviceIndex,
		Kind:        kind,
		OffsetMs:    offsetMs,
		CapturedAt:  captured.Format(time.RFC3339Nano),
		PayloadB64:  base64.StdEncoding.EncodeToString(payload),
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := w.commandStream.Write(line); err != nil {
		return err
	}
	if _, err := w.commandStream.Write([]byte("\n")); err != nil {
		return err
	}
	return w.commandStream.Flush()
}

// AppendTimeline writes one fixed-size row to the binary timeline.
func (w *Writer) AppendTimeline(deviceIndex uint32, offsetMs int64, intensity float64) error {
	if w == nil {
		return fmt.Errorf("journal writer not initialised")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	row := make([]byte, timelineRowSize)
	binary.LittleEndian.PutUint32(row[0:4], deviceIndex)
	binary.LittleEndian.PutUint64(row[4:12], uint64(offsetMs))
	binary.LittleEndian.PutUint64(row[12:20], math.Float64bits(intensity))
	_, err := w.timelineStream.Write(row)
	return err
}

// Close flushes both sinks and releases file handles, surfacing the
// first failure encountered.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if err := w.commandStream.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.commandStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.commandFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.timelineStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.timelineFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
