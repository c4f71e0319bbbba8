package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/handlers"
	"github.com/nijaru/yt-summary/logger"
	"github.com/nijaru/yt-summary/summary"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	instructions   string
	ignorePlaylist bool
	llmModel       string
	llmAPIKey      string
	llmBaseURL     string
	language       string
	useCache       bool
	refresh        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "yt-summary",
		Short: "Summarize YouTube videos from their transcripts",
		Long: `Fetches a YouTube video's transcript and title and summarizes them with
any OpenAI-compatible chat completion API.

Run "serve" for the HTTP API, or use the one-shot commands from a shell.`,
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	summarizeCmd := &cobra.Command{
		Use:   "summarize <youtube-url>",
		Short: "Fetch transcript and title and print a JSON summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummarize,
	}
	summarizeCmd.Flags().StringVar(&instructions, "instructions", "", "Additional instructions for the model")

	transcriptCmd := &cobra.Command{
		Use:   "transcript <youtube-url>",
		Short: "Fetch and print the transcript only",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}

	rootCmd.PersistentFlags().BoolVar(&ignorePlaylist, "ignore-playlist", false, "Use the video id even when the URL names a playlist")
	rootCmd.PersistentFlags().StringVar(&llmModel, "model", "", "LLM model (default: OPENAI_MODEL)")
	rootCmd.PersistentFlags().StringVar(&llmAPIKey, "api-key", "", "LLM API key (default: OPENAI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "api-url", "", "LLM API base URL (default: OPENAI_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&language, "language", "", "Preferred transcript language (default: TRANSCRIPT_LANGUAGE)")
	rootCmd.PersistentFlags().BoolVar(&useCache, "cache", false, "Cache transcripts in the sqlite database at DB_PATH")
	summarizeCmd.Flags().BoolVar(&refresh, "refresh", false, "Drop the cached transcript and fetch it again")
	transcriptCmd.Flags().BoolVar(&refresh, "refresh", false, "Drop the cached transcript and fetch it again")

	rootCmd.AddCommand(serveCmd, summarizeCmd, transcriptCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies command line overrides and
// configures logging to logOut.
func loadConfig(cmd *cobra.Command, logOut io.Writer) (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ignore-playlist") {
		cfg.IgnorePlaylist = ignorePlaylist
	}
	if flags.Changed("model") {
		cfg.OpenAIModel = llmModel
	}
	if flags.Changed("api-key") {
		cfg.OpenAIAPIKey = llmAPIKey
	}
	if flags.Changed("api-url") {
		cfg.OpenAIBaseURL = llmBaseURL
	}
	if flags.Changed("language") {
		cfg.TranscriptLanguage = language
	}
	if flags.Changed("cache") {
		cfg.CacheEnabled = useCache
	}

	closer, err := logger.SetupTo(cfg, logOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := loadConfig(cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	router, closer, err := handlers.NewRouter(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close transcript cache")
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("could not listen on :%s: %w", cfg.ServerPort, err)
	case <-stop:
	}

	logrus.Info("Shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logrus.Info("Server stopped")
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.Summarize(cmd.Context(), summary.Request{
		URL:                    args[0],
		AdditionalInstructions: instructions,
		IgnorePlaylist:         cfg.IgnorePlaylist,
		Refresh:                refresh,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	cfg, svc, cleanup, err := newService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.Transcript(cmd.Context(), summary.Request{
		URL:            args[0],
		IgnorePlaylist: cfg.IgnorePlaylist,
		Refresh:        refresh,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Transcript)
	return nil
}

func newService(cmd *cobra.Command) (*config.Config, *summary.Service, func(), error) {
	cfg, logCloser, err := loadConfig(cmd, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, err
	}

	svc, closer, err := handlers.NewService(cfg)
	if err != nil {
		logCloser.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		closer.Close()
		logCloser.Close()
	}
	return cfg, svc, cleanup, nil
}
