// Command tts-client synthesizes speech from the command line, either for a
// single text or for a JSON file of text chunks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/book-expert/translate-tts-service/internal/config"
	"github.com/book-expert/translate-tts-service/internal/tkk"
	"github.com/book-expert/translate-tts-service/internal/tts"
	"github.com/book-expert/translate-tts-service/internal/tts/ttsutils"
)

// Flag descriptions.
const (
	flagTextDesc      = "Text to convert to speech"
	flagLanguageDesc  = "Target language code (defaults to the configured language)"
	flagOutputDesc    = "Output file (.mp3) for --text, output directory for --chunks"
	flagChunksDesc    = "JSON file containing an array of text chunks to process"
	flagConfigDesc    = "Path to a TOML configuration file (defaults are used when omitted)"
	flagVerboseDesc   = "Enable verbose logging"
	flagHealthDesc    = "Check that the speech service publishes a key pair and exit"
	flagTokenOnlyDesc = "Print the request token for --text and exit"
	flagKeyPairDesc   = "Use this \"index.key\" pair instead of fetching one"
)

// Flag names.
const (
	flagText      = "text"
	flagLanguage  = "lang"
	flagOutput    = "output"
	flagChunks    = "chunks"
	flagConfig    = "config"
	flagVerbose   = "verbose"
	flagHealth    = "health"
	flagTokenOnly = "token"
	flagKeyPair   = "tkk"
)

// Error messages.
const (
	errFailedToLoadConfig    = "failed to load configuration: %w"
	errFailedToInitLogger    = "failed to initialize logger: %w"
	errFailedToCreateDirs    = "failed to create directories: %w"
	errInvalidKeyPair        = "invalid --tkk value: %w"
	errFailedToProcessText   = "failed to process text: %w"
	errFailedToProcessChunks = "failed to process chunks: %w"
	errFailedToComputeToken  = "failed to compute token: %w"
	errServiceNotHealthy     = "speech service is not healthy: %w"
)

var (
	errEitherTextOrChunks = errors.New("either --text or --chunks must be provided")
	errCannotSpecifyBoth  = errors.New("cannot specify both --text and --chunks")
	errTokenNeedsText     = errors.New("--token requires --text")
)

// Log and output messages.
const (
	logClientInitialized     = "TTS client initialized (service: %s)"
	logProcessingSingleText  = "Processing single text to: %s"
	logSuccessfullyGenerated = "Successfully generated speech: %s"
	logProcessingChunks      = "Processing chunks from: %s"
	logOutputDirectory       = "Output directory: %s"
	logSuccessfullyProcessed = "Successfully processed all chunks"

	outGenerated          = "Generated: %s\n"
	outGeneratedAudioDir  = "Generated audio files in: %s\n"
	outServiceHealthy     = "Speech service is healthy"
	outTokenFormat        = "tk=%s textlen=%d tkk=%s\n"
	logFileNameDefault    = "tts-client.log"
	logFileNameVerbose    = "tts-client-verbose.log"
	defaultCommandLineTag = "tts-client"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text      string
	language  string
	output    string
	chunks    string
	config    string
	keyPair   string
	verbose   bool
	health    bool
	tokenOnly bool
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the application entry point, returning an error on failure.
func run(args []string, stdout io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, clientLog, err := setup(flags.config, flags.verbose)
	if err != nil {
		return err
	}
	defer clientLog.Close()

	keys, err := keySupplier(cfg, flags.keyPair)
	if err != nil {
		return err
	}

	client := tts.NewSpeechClientFromConfig(cfg, keys, nil)
	engine := tts.NewHTTPEngineWithClient(cfg, clientLog, client)
	defer engine.Close()

	clientLog.Info(logClientInitialized, cfg.Translate.BaseURL)

	switch {
	case flags.health:
		return handleHealthCheck(client, stdout)
	case flags.tokenOnly:
		return handleTokenOnly(client, flags.text, stdout)
	default:
		return handleExecution(engine, cfg, clientLog, flags, stdout)
	}
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet(defaultCommandLineTag, flag.ContinueOnError)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.language, flagLanguage, "", flagLanguageDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.StringVar(&flags.chunks, flagChunks, "", flagChunksDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)
	flagSet.StringVar(&flags.keyPair, flagKeyPair, "", flagKeyPairDesc)
	flagSet.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flagSet.BoolVar(&flags.tokenOnly, flagTokenOnly, false, flagTokenOnlyDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

// setup loads config, initializes the logger, and ensures directories exist.
func setup(configPath string, verbose bool) (*config.Config, *logger.Logger, error) {
	cfg := config.Default()

	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf(errFailedToLoadConfig, err)
		}

		cfg = loaded
	}

	err := cfg.EnsureDirectories()
	if err != nil {
		return nil, nil, fmt.Errorf(errFailedToCreateDirs, err)
	}

	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	clientLog, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return nil, nil, fmt.Errorf(errFailedToInitLogger, err)
	}

	return cfg, clientLog, nil
}

// keySupplier returns a fixed supplier when a key pair is given on the
// command line, otherwise the configured fetching supplier.
func keySupplier(cfg *config.Config, rawKeyPair string) (tkk.Supplier, error) {
	if rawKeyPair == "" {
		return tts.NewKeySupplier(cfg, nil), nil
	}

	pair, err := tkk.ParseKeyPair(rawKeyPair)
	if err != nil {
		return nil, fmt.Errorf(errInvalidKeyPair, err)
	}

	return tkk.StaticSupplier{Pair: pair}, nil
}

// handleHealthCheck performs a service health check and prints the result.
func handleHealthCheck(client *tts.SpeechClient, stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), tts.HealthCheckTimeout)
	defer cancel()

	err := client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf(errServiceNotHealthy, err)
	}

	_, _ = fmt.Fprintln(stdout, outServiceHealthy)

	return nil
}

// handleTokenOnly prints the token, text length and key pair for text.
func handleTokenOnly(client *tts.SpeechClient, text string, stdout io.Writer) error {
	if text == "" {
		return errTokenNeedsText
	}

	ctx, cancel := context.WithTimeout(context.Background(), tts.HealthCheckTimeout)
	defer cancel()

	tk, key, err := client.Token(ctx, text)
	if err != nil {
		return fmt.Errorf(errFailedToComputeToken, err)
	}

	_, _ = fmt.Fprintf(stdout, outTokenFormat, tk.Value, tk.TextLen, key.String())

	return nil
}

// validateArguments checks for required and conflicting arguments.
func validateArguments(flags appFlags) error {
	if flags.text == "" && flags.chunks == "" {
		return errEitherTextOrChunks
	}

	if flags.text != "" && flags.chunks != "" {
		return errCannotSpecifyBoth
	}

	return nil
}

// handleExecution validates flags and dispatches to the correct processing function.
func handleExecution(
	engine *tts.HTTPEngine,
	cfg *config.Config,
	clientLog *logger.Logger,
	flags appFlags,
	stdout io.Writer,
) error {
	err := validateArguments(flags)
	if err != nil {
		clientLog.Error("%v", err)

		return err
	}

	if flags.text != "" {
		return processSingleText(engine, cfg, clientLog, flags, stdout)
	}

	return processChunks(engine, cfg, clientLog, flags, stdout)
}

// defaultOutputPath names the file after the language and text.
func defaultOutputPath(cfg *config.Config, language, text string) (string, error) {
	resolved, err := tts.ResolveLanguage(language, cfg.Translate.DefaultLanguage)
	if err != nil {
		return "", err
	}

	return filepath.Join(cfg.Paths.OutputDir, ttsutils.DownloadFilename(resolved, text)), nil
}

// processSingleText handles the logic for converting a single text string.
func processSingleText(
	engine *tts.HTTPEngine,
	cfg *config.Config,
	clientLog *logger.Logger,
	flags appFlags,
	stdout io.Writer,
) error {
	outputPath := flags.output
	if outputPath == "" {
		var err error

		outputPath, err = defaultOutputPath(cfg, flags.language, flags.text)
		if err != nil {
			return fmt.Errorf(errFailedToProcessText, err)
		}
	}

	clientLog.Info(logProcessingSingleText, outputPath)

	err := engine.ProcessSingleChunk(flags.text, flags.language, outputPath)
	if err != nil {
		clientLog.Error("Failed to process text: %v", err)

		return fmt.Errorf(errFailedToProcessText, err)
	}

	clientLog.Info(logSuccessfullyGenerated, outputPath)
	_, _ = fmt.Fprintf(stdout, outGenerated, outputPath)

	return nil
}

// processChunks handles the logic for converting a file of text chunks.
func processChunks(
	engine *tts.HTTPEngine,
	cfg *config.Config,
	clientLog *logger.Logger,
	flags appFlags,
	stdout io.Writer,
) error {
	outputDir := flags.output
	if outputDir == "" {
		outputDir = cfg.Paths.OutputDir
	}

	clientLog.Info(logProcessingChunks, flags.chunks)
	clientLog.Info(logOutputDirectory, outputDir)

	err := engine.ProcessChunks(flags.chunks, flags.language, outputDir)
	if err != nil {
		clientLog.Error("Failed to process chunks: %v", err)

		return fmt.Errorf(errFailedToProcessChunks, err)
	}

	clientLog.Info(logSuccessfullyProcessed)
	_, _ = fmt.Fprintf(stdout, outGeneratedAudioDir, outputDir)

	return nil
}
