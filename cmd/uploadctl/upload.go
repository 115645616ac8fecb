package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/resumable/uploadkit/internal/authheader"
	"github.com/resumable/uploadkit/internal/config"
	"github.com/resumable/uploadkit/internal/digest"
	"github.com/resumable/uploadkit/internal/sessionstore"
	"github.com/resumable/uploadkit/uploader"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local file through a resumable chunked session",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}

	return cmd
}

func newResumeCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "resume <file>",
		Short: "Resume a previously created upload session for a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUploadWithSession(cmd, args, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "server-issued session ID to resume (required)")
	_ = cmd.MarkFlagRequired("session-id")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	return runUploadWithSession(cmd, args, "")
}

func runUploadWithSession(cmd *cobra.Command, args []string, sessionID string) error {
	localPath := args[0]

	cfg, err := loadEffectiveConfig()
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg)
	if err != nil {
		return err
	}

	opts.SessionID = sessionID
	opts.Sink = newProgressSink(flagJSON, flagQuiet)

	if flagSessionDB != "" || cfg.SessionDB != "" {
		path := flagSessionDB
		if path == "" {
			path = cfg.SessionDB
		}

		store, err := sessionstore.Open(cmd.Context(), path, slog.Default())
		if err != nil {
			return fmt.Errorf("opening session database: %w", err)
		}
		defer store.Close()

		opts.Store = store
	}

	endpoint := flagEndpoint
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}

	if endpoint == "" {
		return fmt.Errorf("uploadctl: --endpoint is required (or set endpoint in config)")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(localPath))

	result, err := uploader.Run(context.Background(), uploader.Request{
		LocalPath: localPath,
		Endpoint:  endpoint,
		MimeType:  mimeType,
		Options:   opts,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	if !flagQuiet {
		fmt.Printf("uploaded %s in %s (session %s)\n", localPath, result.Duration, result.Session.SessionID)
	}

	return nil
}

func loadEffectiveConfig() (*config.Config, error) {
	if flagConfigPath == "" {
		return config.Default(), nil
	}

	return config.Load(flagConfigPath)
}

func buildOptions(cfg *config.Config) (uploader.Options, error) {
	chunkSizeStr := flagChunkSize
	if chunkSizeStr == "" {
		chunkSizeStr = cfg.ChunkSize
	}

	chunkSize, err := config.ParseSize(chunkSizeStr)
	if err != nil {
		return uploader.Options{}, fmt.Errorf("parsing chunk size: %w", err)
	}

	algoStr := flagAlgorithm
	if algoStr == "" {
		algoStr = cfg.ChecksumAlgorithm
	}

	algo, err := digest.ParseAlgorithm(algoStr)
	if err != nil {
		return uploader.Options{}, err
	}

	bwStr := flagBandwidth
	if bwStr == "" {
		bwStr = cfg.BandwidthLimit
	}

	bandwidthLimit, err := config.ParseSize(bwStr)
	if err != nil {
		return uploader.Options{}, fmt.Errorf("parsing bandwidth limit: %w", err)
	}

	maxRetries := flagMaxRetries
	if maxRetries <= 0 {
		maxRetries = cfg.MaxRetries
	}

	return uploader.Options{
		ChunkSize:         chunkSize,
		MaxRetries:        maxRetries,
		Timeout:           cfg.ResolvedTimeout(),
		ChecksumAlgorithm: algo,
		BandwidthLimit:    bandwidthLimit,
		Credential:        credentialFromConfig(cfg),
		ExtraHeaders:      headersFromConfig(cfg),
		Logger:            slog.Default(),
	}, nil
}

func headersFromConfig(cfg *config.Config) http.Header {
	if len(cfg.Headers) == 0 {
		return nil
	}

	h := http.Header{}
	for _, pair := range cfg.Headers {
		h.Add(pair.Name, pair.Value)
	}

	return h
}

func credentialFromConfig(cfg *config.Config) *authheader.Credential {
	if cfg.Auth.Kind == "" {
		return nil
	}

	return &authheader.Credential{
		Kind:       authheader.Kind(cfg.Auth.Kind),
		Value:      cfg.Auth.Value,
		HeaderName: cfg.Auth.HeaderName,
	}
}
