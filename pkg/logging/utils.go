/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Log file management for stdfkit: rotation with optional gzip compression,
retention cleanup, file statistics and a line scanner that tallies decode events.
*/

package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
)

// LogManager rotates and prunes log files in one directory
type LogManager struct {
	logDir   string
	maxFiles int
	maxSize  int64
	compress bool
}

// NewLogManager creates a new log manager
func NewLogManager(logDir string, maxFiles int, maxSize int64, compress bool) *LogManager {
	return &LogManager{
		logDir:   logDir,
		maxFiles: maxFiles,
		maxSize:  maxSize,
		compress: compress,
	}
}

func (lm *LogManager) glob(suffix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(lm.logDir, logFilePrefix+"*"+suffix))
	if err != nil {
		return nil, errors.Wrap(err, "failed to glob log files")
	}
	return files, nil
}

// RotateLogs rotates log files that exceed the size limit
func (lm *LogManager) RotateLogs() error {
	files, err := lm.glob(".log")
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := lm.rotateFile(file); err != nil {
			return errors.Wrapf(err, "failed to rotate file %s", file)
		}
	}
	return nil
}

// rotateFile rotates a single log file
func (lm *LogManager) rotateFile(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	if stat.Size() < lm.maxSize {
		return nil
	}

	rotatedPath := fmt.Sprintf("%s.%s", path, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.Rename(path, rotatedPath); err != nil {
		return err
	}
	if lm.compress {
		return lm.compressFile(rotatedPath)
	}
	return nil
}

// compressFile gzips a log file and removes the original
func (lm *LogManager) compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	compressed, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer compressed.Close()

	gzipWriter := gzip.NewWriter(compressed)
	if _, err := io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

// CleanupOldLogs removes the oldest files beyond the retention count
func (lm *LogManager) CleanupOldLogs() error {
	files, err := lm.glob(".log*")
	if err != nil {
		return err
	}
	if len(files) <= lm.maxFiles {
		return nil
	}

	sort.Slice(files, func(i, j int) bool {
		statI, errI := os.Stat(files[i])
		statJ, errJ := os.Stat(files[j])
		if errI != nil || errJ != nil {
			return files[i] < files[j]
		}
		return statI.ModTime().Before(statJ.ModTime())
	})

	for _, file := range files[:len(files)-lm.maxFiles] {
		if err := os.Remove(file); err != nil {
			return errors.Wrapf(err, "failed to remove file %s", file)
		}
	}
	return nil
}

// GetLogStats returns statistics about log files
func (lm *LogManager) GetLogStats() (*LogStats, error) {
	files, err := lm.glob(".log*")
	if err != nil {
		return nil, err
	}

	stats := &LogStats{TotalFiles: len(files)}
	for _, file := range files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}
		stats.TotalSize += stat.Size()
		if stats.OldestFile.IsZero() || stat.ModTime().Before(stats.OldestFile) {
			stats.OldestFile = stat.ModTime()
		}
		if stat.ModTime().After(stats.NewestFile) {
			stats.NewestFile = stat.ModTime()
		}
		if strings.HasSuffix(file, ".gz") {
			stats.CompressedFiles++
		} else {
			stats.UncompressedFiles++
		}
	}
	return stats, nil
}

// LogStats holds statistics about log files
type LogStats struct {
	TotalFiles        int       `json:"total_files"`
	TotalSize         int64     `json:"total_size"`
	CompressedFiles   int       `json:"compressed_files"`
	UncompressedFiles int       `json:"uncompressed_files"`
	OldestFile        time.Time `json:"oldest_file"`
	NewestFile        time.Time `json:"newest_file"`
}

// LogAnalyzer tallies decode events across uncompressed log files
type LogAnalyzer struct {
	logDir string
}

// NewLogAnalyzer creates a new log analyzer
func NewLogAnalyzer(logDir string) *LogAnalyzer {
	return &LogAnalyzer{logDir: logDir}
}

// AnalyzeLogs scans every log file in the directory
func (la *LogAnalyzer) AnalyzeLogs() (*LogAnalysis, error) {
	files, err := filepath.Glob(filepath.Join(la.logDir, logFilePrefix+"*.log"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to glob log files")
	}

	analysis := &LogAnalysis{StartTime: time.Now(), LogFiles: len(files)}
	for _, file := range files {
		if err := la.analyzeFile(file, analysis); err != nil {
			return nil, errors.Wrapf(err, "failed to analyze file %s", file)
		}
	}
	return analysis, nil
}

func (la *LogAnalyzer) analyzeFile(path string, analysis *LogAnalysis) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		analysis.analyzeLine(scanner.Text())
	}
	return scanner.Err()
}

// analyzeLine counts levels and decode events on one line
func (a *LogAnalysis) analyzeLine(line string) {
	a.TotalLines++

	switch {
	case strings.Contains(line, "DEBUG"):
		a.DebugCount++
	case strings.Contains(line, "INFO"):
		a.InfoCount++
	case strings.Contains(line, "WARN"):
		a.WarningCount++
	case strings.Contains(line, "ERROR"):
		a.ErrorCount++
	}

	switch {
	case strings.Contains(line, "Decode started"):
		a.DecodeCount++
	case strings.Contains(line, "Record warning"):
		a.RecordWarnings++
	case strings.Contains(line, "Skipping undecodable record"):
		a.SkippedRecords++
	case strings.Contains(line, "cross-validation mismatch"):
		a.CrossValidation++
	case strings.Contains(line, "Export written"):
		a.ExportCount++
	}
}

// LogAnalysis holds the results of log analysis
type LogAnalysis struct {
	StartTime       time.Time `json:"start_time"`
	LogFiles        int       `json:"log_files"`
	TotalLines      int64     `json:"total_lines"`
	DebugCount      int64     `json:"debug_count"`
	InfoCount       int64     `json:"info_count"`
	WarningCount    int64     `json:"warning_count"`
	ErrorCount      int64     `json:"error_count"`
	DecodeCount     int64     `json:"decode_count"`
	RecordWarnings  int64     `json:"record_warnings"`
	SkippedRecords  int64     `json:"skipped_records"`
	CrossValidation int64     `json:"cross_validation_mismatches"`
	ExportCount     int64     `json:"export_count"`
}

// GetLogSummary returns a summary of the log analysis
func (a *LogAnalysis) GetLogSummary() string {
	return fmt.Sprintf(
		"Log Analysis Summary:\n"+
			"  Files: %d\n"+
			"  Total Lines: %d\n"+
			"  Debug: %d  Info: %d  Warning: %d  Error: %d\n"+
			"  Decodes: %d\n"+
			"  Record Warnings: %d\n"+
			"  Skipped Records: %d\n"+
			"  Cross-validation Mismatches: %d\n"+
			"  Exports: %d",
		a.LogFiles, a.TotalLines, a.DebugCount, a.InfoCount, a.WarningCount, a.ErrorCount,
		a.DecodeCount, a.RecordWarnings, a.SkippedRecords, a.CrossValidation, a.ExportCount,
	)
}
