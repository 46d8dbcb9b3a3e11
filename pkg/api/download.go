package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ruslano69/tdtp-datagen/pkg/config"
	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/writers"
)

// defaultArchiveFile имя файла в архиве, если конфигурация не задает file_writer
const defaultArchiveFile = "generated_data.csv"

// fileExt writers, результат которых можно положить в архив
var fileExt = map[string]string{
	"csv":     ".csv",
	"json":    ".json",
	"jsonl":   ".jsonl",
	"xlsx":    ".xlsx",
	"html":    ".html",
	"feather": ".feather",
	"parquet": ".parquet",
}

// archiveEntry файл во временном каталоге и его имя в архиве
type archiveEntry struct {
	name  string
	local string
}

// Download POST /generate_and_download: file_writer конфигурации пишут во
// временный каталог, ответ содержит zip с этими файлами. output_path
// определяет только имя файла в архиве. Без file_writer таблица отдается одним CSV.
func (h *handler) Download(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.readConfig(w, r)
	if !ok {
		return
	}

	dir, err := os.MkdirTemp("", "datagen-download-*")
	if err != nil {
		writeError(w, generr.Writer("zip", err))
		return
	}
	defer os.RemoveAll(dir)

	ws, entries, err := downloadWriters(cfg.FileWriter, dir)
	if err != nil {
		writeError(w, err)
		return
	}

	tbl, ok := h.generate(w, r, cfg)
	if !ok {
		return
	}
	if err := writers.WriteAll(r.Context(), tbl, ws); err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := writeArchive(&buf, entries); err != nil {
		writeError(w, generr.Writer("zip", err))
		return
	}

	h.logger.Info().
		Str("config", cfg.Name()).
		Int("files", len(entries)).
		Int("bytes", buf.Len()).
		Msg("archive ready")

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archiveName(cfg.Name())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// downloadWriters создает writers с output_path внутри dir.
// Базы данных и другие writers без файла отклоняются.
func downloadWriters(cfgs []config.WriterConfig, dir string) ([]writers.Writer, []archiveEntry, error) {
	if len(cfgs) == 0 {
		cfgs = []config.WriterConfig{{Type: "csv", Params: config.Params{"output_path": defaultArchiveFile}}}
	}

	ws := make([]writers.Writer, 0, len(cfgs))
	entries := make([]archiveEntry, 0, len(cfgs))
	used := make(map[string]bool, len(cfgs))
	for i, wc := range cfgs {
		t := writers.NormalizeType(wc.Type)
		ext, ok := fileExt[t]
		if !ok {
			return nil, nil, generr.Configuration("file_writer[%d]: %s writer does not produce a file", i, wc.Type)
		}

		name := "generated_data" + ext
		if p, _ := wc.Params["output_path"].(string); strings.TrimSpace(p) != "" {
			// s3://bucket/key и локальные пути: берется только последний элемент
			if base := path.Base(filepath.ToSlash(strings.TrimSpace(p))); base != "." && base != ".." && base != "/" {
				name = base
			}
		}
		if used[name] {
			name = fmt.Sprintf("%d_%s", i, name)
		}
		used[name] = true

		params := make(map[string]any, len(wc.Params)+1)
		for k, v := range wc.Params {
			params[k] = v
		}
		local := filepath.Join(dir, name)
		params["output_path"] = local

		wr, err := writers.New(wc.Type, params)
		if err != nil {
			return nil, nil, err
		}
		ws = append(ws, wr)
		entries = append(entries, archiveEntry{name: name, local: local})
	}
	return ws, entries, nil
}

// writeArchive пакует файлы в zip в порядке file_writer
func writeArchive(dst io.Writer, entries []archiveEntry) error {
	zw := zip.NewWriter(dst)
	for _, e := range entries {
		if err := addFile(zw, e); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, e archiveEntry) error {
	f, err := os.Open(e.local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.name, err)
	}
	defer f.Close()

	out, err := zw.Create(e.name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", e.name, err)
	}
	if _, err := io.Copy(out, f); err != nil {
		return fmt.Errorf("failed to compress %s: %w", e.name, err)
	}
	return nil
}

// archiveName имя архива из metadata.name: пробелы заменяются на _
func archiveName(configName string) string {
	name := strings.TrimSpace(configName)
	if name == "" {
		name = "generated_data"
	}
	return strings.ReplaceAll(name, " ", "_") + "_data.zip"
}
