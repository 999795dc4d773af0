package transcript

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/rao305/Syntra.ai-sub006/internal/store"
)

// Export writes every stored transcript into a zstd-compressed tar stream,
// one pretty-printed JSON file per run, for handoff to the offline quality
// evaluator.
func Export(st *store.Store, w io.Writer) (int, error) {
	transcripts, err := st.ListTranscripts()
	if err != nil {
		return 0, fmt.Errorf("list transcripts: %w", err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	for _, t := range transcripts {
		var pretty json.RawMessage = t.Payload
		if buf, err := json.MarshalIndent(json.RawMessage(t.Payload), "", "  "); err == nil {
			pretty = buf
		}

		hdr := &tar.Header{
			Name:    t.RunID + ".json",
			Mode:    0o644,
			Size:    int64(len(pretty)),
			ModTime: t.CreatedAt,
		}
		if hdr.ModTime.IsZero() {
			hdr.ModTime = time.Now()
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return 0, fmt.Errorf("write tar header: %w", err)
		}
		if _, err := tw.Write(pretty); err != nil {
			return 0, fmt.Errorf("write tar data: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zstd: %w", err)
	}
	return len(transcripts), nil
}

// ReadArchive decodes an exported archive back into transcripts, keyed by
// run id.
func ReadArchive(r io.Reader) (map[string]Transcript, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	out := make(map[string]Transcript)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read tar data: %w", err)
		}
		var t Transcript
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode %s: %w", hdr.Name, err)
		}
		out[t.RunID] = t
	}
	return out, nil
}

// FormatSize renders a byte count for CLI output.
func FormatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
