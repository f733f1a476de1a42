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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ostafen/ntfsrecover/internal/diskio"
	"github.com/ostafen/ntfsrecover/internal/errs"
	"github.com/ostafen/ntfsrecover/internal/recovery"
)

func DefineRecoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover <volume> <file-id> <destination>",
		Short: "Recover a single file found by a prior scan",
		Long: `The 'recover' command re-scans the volume to locate the file identified by
<file-id> (the "id=" value printed by 'scan') and writes its recovered bytes to
<destination>. It tries live copy, cluster reassembly, MFT-resident extraction,
Recycle Bin matching, Volume Shadow Copy lookup, and signature carving in turn,
stopping at the first strategy that succeeds.`,
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         RunRecover,
	}

	cmd.Flags().String("mode", "deep", "scan depth used to locate the file: quick or deep")
	cmd.Flags().String("mount-root", "", "mounted path of the volume, for live-copy and Recycle Bin lookups")
	cmd.Flags().Bool("force", false, "overwrite an existing destination file")
	cmd.Flags().StringSlice("part", nil, "additional segment files of a multi-part disk image capture, in order")

	return cmd
}

func RunRecover(cmd *cobra.Command, args []string) error {
	volPath := diskio.NormalizeVolumePath(args[0])
	fileID := args[1]
	destination := args[2]

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		if _, err := os.Stat(destination); err == nil {
			return fmt.Errorf("%w: %s (use --force to overwrite)", errs.ErrDestinationExists, destination)
		}
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

	files, err := orc.Scan(mode, nil)
	if err != nil {
		return err
	}

	var target *recovery.RecoverableFile
	for i := range files {
		if files[i].ID == fileID {
			target = &files[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no file with id %q found in scan of %s", fileID, volPath)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	mountRoot, _ := cmd.Flags().GetString("mount-root")
	result, err := orc.Recover(*target, destination, mountRoot, nil)
	if err != nil {
		fmt.Printf("status=failed\nfile=%s\nreason=%s\n", target.Name, err)
		return err
	}

	fmt.Printf("status=ok\n")
	fmt.Printf("file=%s\n", target.Name)
	fmt.Printf("source=%s\n", result.Source)
	fmt.Printf("bytes_recovered=%d\n", result.BytesRecovered)
	fmt.Printf("complete=%t\n", result.Complete)
	fmt.Printf("failed_runs=%d\n", result.FailedRuns)
	fmt.Printf("message=%s\n", result.Message)
	return nil
}
