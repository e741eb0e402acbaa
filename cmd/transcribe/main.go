// Command transcribe runs the acquisition + transcription pipeline
// against a single URL without the server, printing the transcript.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kukshaus/transcribe-sub000/internal/media"
	"github.com/kukshaus/transcribe-sub000/internal/transcribe"
)

func main() {
	var (
		url        = flag.String("url", "", "Source video URL")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		model      = flag.String("model", "whisper-1", "Transcription model")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -url https://www.youtube.com/watch?v=...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -url https://youtu.be/... -o transcript.txt\n", os.Args[0])
	}

	flag.Parse()

	if *url == "" {
		fmt.Fprintf(os.Stderr, "Error: -url is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY is required")
		os.Exit(1)
	}

	ctx := context.Background()
	fetcher := media.NewYouTubeFetcher()
	encoder := media.NewFFmpegEncoder()
	engine := transcribe.NewOpenAIEngine(apiKey, *model)

	workDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		fatal(err)
	}
	defer os.RemoveAll(workDir)

	if *verbose {
		fmt.Fprintf(os.Stderr, "Downloading audio from %s\n", *url)
	}
	download, err := fetcher.Fetch(ctx, *url, workDir)
	if err != nil {
		fatal(err)
	}

	duration, err := encoder.Probe(ctx, download.Path)
	if err != nil {
		fatal(err)
	}

	plan := media.PlanAdaptation(download.SizeBytes, duration, media.DefaultSizeLimitBytes)
	if *verbose {
		fmt.Fprintf(os.Stderr, "Downloaded %d bytes (%.0fs), adaptation: %s\n", download.SizeBytes, duration, plan.Action)
	}

	chunks := []string{download.Path}
	switch plan.Action {
	case media.AdaptReencode:
		reencoded := filepath.Join(workDir, "reencoded.mp3")
		if err := encoder.Reencode(ctx, download.Path, reencoded); err != nil {
			fatal(err)
		}
		chunks = []string{reencoded}
	case media.AdaptChunk:
		chunks, err = encoder.Split(ctx, download.Path, filepath.Join(workDir, "chunks"), plan.ChunkSeconds)
		if err != nil {
			fatal(err)
		}
	}

	var texts []string
	for i, chunk := range chunks {
		if *verbose {
			fmt.Fprintf(os.Stderr, "Transcribing chunk %d of %d\n", i+1, len(chunks))
		}
		text, err := engine.Transcribe(ctx, chunk)
		if err != nil {
			fatal(err)
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	transcript := strings.Join(texts, " ")

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(transcript), 0644); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "Transcript written to %s\n", *outputFile)
	} else {
		fmt.Println(transcript)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
