// Package main is the entry point for the beatsmith CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundfold/beatsmith/pkg/api"
	"github.com/soundfold/beatsmith/pkg/audio"
	"github.com/soundfold/beatsmith/pkg/beatmap"
	"github.com/soundfold/beatsmith/pkg/editor"
	"github.com/soundfold/beatsmith/pkg/export"
	"github.com/soundfold/beatsmith/pkg/grid"
	"github.com/soundfold/beatsmith/pkg/peaks"
	"github.com/soundfold/beatsmith/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile   string
	subdivision  int
	laneName     string
	level        int
	beatInterval float64
	trackName    string
	thresholdPct float64
	rearmPct     float64
	minGap       float64
	serverPort   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "beatsmith",
	Short: "Edit and process rhythm-game beatmaps",
	Long: `beatsmith is a tool for editing rhythm-game beatmap files: snapping
markers to the beat grid, cleaning up duplicates, generating markers from
audio peaks and exporting maps to MIDI.

Examples:
  beatsmith info song.json
  beatsmith cleanup song.json -o cleaned.json
  beatsmith snap song.json --subdivision 4
  beatsmith insert song.json --lane drum --interval 1
  beatsmith peaks analysis.json --track drums
  beatsmith export song.json -o song.mid
  beatsmith tui
  beatsmith serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var infoCmd = &cobra.Command{
	Use:   "info <beatmap.json>",
	Short: "Show beatmap metadata and marker counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <beatmap.json>",
	Short: "Remove duplicate markers",
	Args:  cobra.ExactArgs(1),
	RunE:  runCleanup,
}

var snapCmd = &cobra.Command{
	Use:   "snap <beatmap.json>",
	Short: "Snap all markers to the beat grid",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnap,
}

var insertCmd = &cobra.Command{
	Use:   "insert <beatmap.json>",
	Short: "Insert markers at regular beat intervals",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsert,
}

var peaksCmd = &cobra.Command{
	Use:   "peaks <analysis.json>",
	Short: "Detect peaks in a precomputed amplitude envelope",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeaks,
}

var exportCmd = &cobra.Command{
	Use:   "export <beatmap.json>",
	Short: "Export a beatmap as a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	cleanupCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: overwrite input)")

	snapCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: overwrite input)")
	snapCmd.Flags().IntVarP(&subdivision, "subdivision", "s", grid.SubdivisionQuarter, "Beat subdivision (2, 4, 8 or 16)")

	insertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: overwrite input)")
	insertCmd.Flags().StringVarP(&laneName, "lane", "l", string(beatmap.LaneDrum), "Target lane")
	insertCmd.Flags().IntVar(&level, "level", beatmap.LevelEasy, "Marker level (1-3)")
	insertCmd.Flags().Float64VarP(&beatInterval, "interval", "i", 1, "Interval in beats")

	peaksCmd.Flags().StringVarP(&trackName, "track", "t", audio.TrackDrums, "Envelope track")
	peaksCmd.Flags().Float64Var(&thresholdPct, "threshold", peaks.DefaultThresholdPercent, "Threshold percent of the envelope range")
	peaksCmd.Flags().Float64Var(&rearmPct, "rearm", -1, "Re-arm percent (default: 70% of threshold)")
	peaksCmd.Flags().Float64Var(&minGap, "min-gap", peaks.MinPeakGapSeconds, "Minimum gap between peaks in seconds")

	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(snapCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(peaksCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	if defaultExt == "" {
		return input
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runInfo(cmd *cobra.Command, args []string) error {
	bm, err := beatmap.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:     %s\n", args[0])
	if bm.Meta.Title != "" {
		fmt.Printf("Title:    %s\n", bm.Meta.Title)
	}
	fmt.Printf("Version:  %s\n", bm.Meta.Version)
	fmt.Printf("BPM:      %.1f\n", bm.Meta.BPM)
	fmt.Printf("Duration: %.1fs\n", bm.Meta.TotalDuration)
	fmt.Printf("Markers:  %d\n", bm.Len())
	for _, lane := range beatmap.Lanes {
		if n := len(bm.NotesByLane(lane)); n > 0 {
			fmt.Printf("  %-6s %d\n", lane, n)
		}
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	session := editor.NewSession()
	if err := session.Load(args[0]); err != nil {
		return err
	}

	fmt.Println(session.CleanupDuplicates())
	return session.SaveAs(getOutputPath(args[0], ""))
}

func runSnap(cmd *cobra.Command, args []string) error {
	session := editor.NewSession()
	if err := session.Load(args[0]); err != nil {
		return err
	}

	session.SelectAll()
	fmt.Println(session.SnapSelection(subdivision))
	session.Beatmap.ClearSelection()
	return session.SaveAs(getOutputPath(args[0], ""))
}

func runInsert(cmd *cobra.Command, args []string) error {
	session := editor.NewSession()
	if err := session.Load(args[0]); err != nil {
		return err
	}

	status, err := session.InsertBeatMarkers(beatmap.Lane(laneName), beatInterval, level, false)
	if err != nil {
		return err
	}
	fmt.Println(status)
	session.Beatmap.ClearSelection()
	return session.SaveAs(getOutputPath(args[0], ""))
}

func runPeaks(cmd *cobra.Command, args []string) error {
	analysis, err := audio.LoadAnalysis(args[0])
	if err != nil {
		return err
	}
	env := analysis.RMSFor(trackName)
	if env == nil {
		return fmt.Errorf("no envelope for track %q", trackName)
	}

	times := peaks.Detect(env, analysis.Duration, thresholdPct, rearmPct, minGap)
	fmt.Printf("Detected %d peaks in %s\n", len(times), trackName)
	for _, t := range times {
		fmt.Printf("  %.3fs\n", t)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	bm, err := beatmap.Load(args[0])
	if err != nil {
		return err
	}

	output := getOutputPath(args[0], ".mid")
	if err := export.NewMIDIExporter().WriteFile(bm, output); err != nil {
		return err
	}
	fmt.Printf("Exported %s -> %s\n", args[0], output)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
