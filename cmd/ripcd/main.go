// Command ripcd rips a single track from an audio CD to a WAV file using a
// raw SCSI device path, as a thin example wrapper around the rawcd library.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/rawcd/rawcd"
)

// streamConfig is the optional YAML override for the stream/retry policy,
// loaded via --config. Any field left zero falls back to the library
// default.
type streamConfig struct {
	SectorsPerChunk    uint32 `yaml:"sectors_per_chunk"`
	MaxAttempts        byte   `yaml:"max_attempts"`
	InitialBackoffMs   uint64 `yaml:"initial_backoff_ms"`
	MaxBackoffMs       uint64 `yaml:"max_backoff_ms"`
	ReduceChunkOnRetry *bool  `yaml:"reduce_chunk_on_retry"`
}

func (c streamConfig) apply(base rawcd.TrackStreamConfig) rawcd.TrackStreamConfig {
	if c.SectorsPerChunk > 0 {
		base.SectorsPerChunk = c.SectorsPerChunk
	}
	if c.MaxAttempts > 0 {
		base.Retry.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		base.Retry.InitialBackoffMs = c.InitialBackoffMs
	}
	if c.MaxBackoffMs > 0 {
		base.Retry.MaxBackoffMs = c.MaxBackoffMs
	}
	if c.ReduceChunkOnRetry != nil {
		base.Retry.ReduceChunkOnRetry = *c.ReduceChunkOnRetry
	}
	return base
}

func loadConfig(path string) (streamConfig, error) {
	var cfg streamConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func main() {
	var (
		devicePath = pflag.StringP("device", "d", "", "raw SCSI device path (required)")
		trackNo    = pflag.UintP("track", "t", 1, "track number to rip")
		outPath    = pflag.StringP("out", "o", "track.wav", "output WAV file path")
		configPath = pflag.StringP("config", "c", "", "optional YAML file overriding the retry/stream policy")
		verbose    = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)
	pflag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *devicePath == "" {
		fmt.Fprintln(os.Stderr, "error: --device is required")
		pflag.Usage()
		os.Exit(2)
	}

	if err := run(*devicePath, byte(*trackNo), *outPath, *configPath); err != nil {
		log.Error("rip failed", "err", err)
		os.Exit(1)
	}
}

func run(devicePath string, trackNo byte, outPath, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	reader, err := rawcd.Open(devicePath)
	if err != nil {
		return fmt.Errorf("open %q: %w", devicePath, err)
	}
	defer reader.Close()

	toc, err := reader.ReadTOC()
	if err != nil {
		return fmt.Errorf("read TOC: %w", err)
	}
	log.Info("table of contents read", "tracks", len(toc.Tracks), "leadout_lba", toc.LeadoutLBA)

	streamCfg := cfg.apply(rawcd.DefaultTrackStreamConfig())
	stream, err := reader.OpenTrackStream(toc, trackNo, streamCfg)
	if err != nil {
		return fmt.Errorf("open track %d: %w", trackNo, err)
	}

	pcm := make([]byte, 0, int(stream.TotalSectors())*rawcd.BytesPerSector)
	for {
		chunk, err := stream.NextChunk()
		if err != nil {
			return fmt.Errorf("read track %d: %w", trackNo, err)
		}
		if chunk == nil {
			break
		}
		pcm = append(pcm, chunk...)
		log.Debug("progress", "track", trackNo, "seconds", stream.CurrentSeconds(), "total_seconds", stream.TotalSeconds())
	}

	if err := os.WriteFile(outPath, rawcd.CreateWAV(pcm), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", outPath, err)
	}

	log.Info("track ripped", "track", trackNo, "out", outPath, "bytes", len(pcm))
	return nil
}
