package journal

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Entry is one rehydrated command record from the JSONL log.
type Entry struct {
	DeviceIndex uint32
	Kind        string
	OffsetMs    int64
	CapturedAt  time.Time
	Payload     []byte
}

// TimelinePoint is one rehydrated row from the binary timeline.
type TimelinePoint struct {
	DeviceIndex uint32
	OffsetMs    int64
	Intensity   float64
}

// LoadCommands reads the command log of a bundle directory back into
// memory, preserving write order.
func LoadCommands(dir string) ([]Entry, error) {
	if dir == "" {
		return nil, fmt.Errorf("journal directory must be provided")
	}
	file, err := os.Open(filepath.Join(dir, commandsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(snappy.NewReader(file))
	var entries []Entry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record struct {
			DeviceIndex uint32 `json:"device_index"`
			Kind        string `json:"kind"`
			OffsetMs    int64  `json:"offset_ms"`
			CapturedAt  string `json:"captured_at"`
			PayloadB64  string `json:"payload_b64"`
		}
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("parse command record: %w", err)
		}
		captured, err := time.Parse(time.RFC3339Nano, record.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("parse captured_at: %w", err)
		}
		payload, err := base64.StdEncoding.DecodeString(record.PayloadB64)
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		entries = append(entries, Entry{
			DeviceIndex: record.DeviceIndex,
			Kind:        record.Kind,
			OffsetMs:    record.OffsetMs,
			CapturedAt:  captured,
			Payload:     payload,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadTimeline reads the binary timeline of a bundle directory.
func LoadTimeline(dir string) ([]TimelinePoint, error) {
	if dir == "" {
		return nil, fmt.Errorf("journal directory must be provided")
	}
	file, err := os.Open(filepath.Join(dir, timelineFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var points []TimelinePoint
	row := make([]byte, timelineRowSize)
	for {
		_, err := io.ReadFull(decoder, row)
		if err == io.EOF {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read timeline row: %w", err)
		}
		points = append(points, TimelinePoint{
			DeviceIndex: binary.LittleEndian.Uint32(row[0:4]),
			OffsetMs:    int64(binary.LittleEndian.Uint64(row[4:12])),
			Intensity:   math.Float64frombits(binary.LittleEndian.Uint64(row[12:20])),
		})
	}
}

// LoadManifest reads the bundle manifest.
func LoadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, nil
}
