package plan

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml", "parquet"}

// Write encodes rows to w. Parquet is written as a complete file.
func Write(w io.Writer, rows []Row, format string) error {
	switch format {
	case "text":
		return writeText(w, rows)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return encoder.Close()
	case "parquet":
		if err := parquet.Write(w, rows); err != nil {
			return fmt.Errorf("failed to write parquet: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeText(w io.Writer, rows []Row) error {
	side := ""
	for _, r := range rows {
		if r.Side != side {
			side = r.Side
			fmt.Fprintln(w, "========================================")
			fmt.Fprintf(w, "%s sheet\n", side)
			fmt.Fprintln(w, "========================================")
		}
		marker := " "
		if r.Rank == 0 {
			marker = "*"
		}
		_, err := fmt.Fprintf(w, "%s %2d  %-6s %-3s %-4s  crop %v  sheet (%d,%d)  rotate sheet=%t page=%t\n",
			marker, r.Square, r.Page, r.Part, r.Orientation, r.Crop(), r.SheetX, r.SheetY, r.SheetRotate, r.PageRotate)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadParquet loads rows written by Write in parquet format.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet plan opened", "path", path, "num_rows", pf.NumRows())

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, pf.NumRows())
	total := 0
	for total < len(rows) {
		n, err := reader.Read(rows[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows[:total], nil
}
