// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/logging"
	"github.com/ostafen/ntfsrecover/internal/recovery"
	"github.com/ostafen/ntfsrecover/pkg/pbar"
)

func DefineScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scan <volume>",
		Short:        "Scan an NTFS volume or disk image for recoverable files",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunScan,
	}

	cmd.Flags().String("mode", "quick", "scan depth: quick or deep")
	cmd.Flags().StringP("output", "o", "", "write the scan report to this file instead of stdout")
	cmd.Flags().String("log-file", "", "write structured logs to this file (discarded if unset)")
	cmd.Flags().Bool("progress", false, "render a progress bar on stderr while the MFT walk runs")
	cmd.Flags().StringSlice("part", nil, "additional segment files of a multi-part disk image capture, in order")

	return cmd
}

func RunScan(cmd *cobra.Command, args []string) error {
	volPath := diskio.NormalizeVolumePath(args[0])

	logFile, _ := cmd.Flags().GetString("log-file")
	logger, lf, err := logging.New(logFile, loggingLevel())
	if err != nil {
		return err
	}
	if lf != nil {
		defer lf.Close()
	}

	parts, _ := cmd.Flags().GetStringSlice("part")
	vol, err := openVolume(volPath, parts)
	if err != nil {
		return fmt.Errorf("opening volume %s: %w", volPath, err)
	}
	defer vol.Close()

	orc, err := openOrchestrator(vol)
	if err != nil {
		return err
	}

	mode, err := parseMode(cmd)
	if err != nil {
		return err
	}

	logger.Info("starting scan", "volume", volPath, "mode", mode)

	var onProgress recovery.ProgressFunc
	showProgress, _ := cmd.Flags().GetBool("progress")
	if showProgress {
		recordCount, err := orc.RecordCount()
		if err != nil {
			return err
		}
		recordSize := uint64(orc.RecordSize())
		bar := pbar.NewProgressBarState(int64(recordCount * recordSize))
		onProgress = func(processed, _ uint64, found int) {
			bar.ProcessedBytes = int64(processed * recordSize)
			bar.FilesFound = found
			bar.Render(false)
		}
		defer bar.Finish()
	}

	started := time.Now()
	files, err := orc.ScanWithProgress(mode, nil, onProgress)
	if err != nil {
		if errs.Is(err, errs.ErrVolumeLocked) {
			return fmt.Errorf("volume %s is locked; unlock it through the OS before scanning: %w", volPath, err)
		}
		return err
	}
	logger.Info("scan complete", "volume", volPath, "files", len(files), "elapsed", time.Since(started).String())

	out := os.Stdout
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	defer w.Flush()
	return writeReport(w, files)
}

func parseMode(cmd *cobra.Command) (recovery.Mode, error) {
	s, _ := cmd.Flags().GetString("mode")
	switch s {
	case "quick", "":
		return recovery.ModeQuick, nil
	case "deep":
		return recovery.ModeDeep, nil
	default:
		return 0, fmt.Errorf("unknown scan mode %q (want quick or deep)", s)
	}
}

// writeReport emits one key=value stanza per recoverable file, separated by
// blank lines. Human-readable reporting stays out of the engine; consumers
// parse this directly.
func writeReport(w *bufio.Writer, files []recovery.RecoverableFile) error {
	for _, f := range files {
		fmt.Fprintf(w, "id=%s\n", f.ID)
		fmt.Fprintf(w, "name=%s\n", f.Name)
		fmt.Fprintf(w, "path=%s\n", f.Path)
		fmt.Fprintf(w, "size=%d\n", f.Size)
		fmt.Fprintf(w, "extension=%s\n", f.Extension)
		fmt.Fprintf(w, "category=%s\n", f.Category)
		fmt.Fprintf(w, "modified=%d\n", f.Modified)
		fmt.Fprintf(w, "created=%d\n", f.Created)
		fmt.Fprintf(w, "deleted=%t\n", f.Deleted)
		fmt.Fprintf(w, "chance=%d\n", f.RecoveryChance)
		fmt.Fprintf(w, "source=%s\n", f.Source)
		fmt.Fprintf(w, "difficulty=%s\n", f.Difficulty)
		fmt.Fprintf(w, "age=%s\n", f.AgeBucket)
		fmt.Fprintln(w)
	}
	return w.Flush()
}
