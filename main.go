package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parlo/capture"
	"parlo/config"
	"parlo/gemini"
	"parlo/history"
	"parlo/player"
	"parlo/segment"
	"parlo/session"
	"parlo/speech"
	"parlo/tts"
	"parlo/tui"
	"parlo/web"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key")
	rootCmd.PersistentFlags().String("deepseek-api-key", "", "DeepSeek API key (text-only fallback)")
	rootCmd.PersistentFlags().String("elevenlabs-api-key", "", "ElevenLabs API key")
	rootCmd.PersistentFlags().String("db", "", "Path to the history database")
	rootCmd.PersistentFlags().Int("web-port", 8080, "Web server port")

	viper.BindPFlag(config.KeyGeminiAPIKey, rootCmd.PersistentFlags().Lookup("gemini-api-key"))
	viper.BindPFlag(config.KeyDeepSeekAPIKey, rootCmd.PersistentFlags().Lookup("deepseek-api-key"))
	viper.BindPFlag(config.KeyElevenLabsAPIKey, rootCmd.PersistentFlags().Lookup("elevenlabs-api-key"))
	viper.BindPFlag(config.KeyDBPath, rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag(config.KeyWebPort, rootCmd.PersistentFlags().Lookup("web-port"))

	analyzeCmd.Flags().Bool("no-tui", false, "Print the transcript instead of opening the player")
	analyzeCmd.Flags().Bool("live", false, "Serve the follow-along feed while playing")
	showCmd.Flags().Bool("live", false, "Serve the follow-along feed while playing")
	speakCmd.Flags().String("wav", "", "Write a WAV file instead of playing aloud")
	speakCmd.Flags().Bool("elevenlabs", false, "Use the ElevenLabs voice instead of Gemini")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(defineCmd)
	rootCmd.AddCommand(shadowCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setupCmd)
}

func initConfig() {
	if err := config.Load(); err != nil {
		fmt.Printf("Error reading config file: %s\n", err)
	}
	logger = log.New(os.Stderr)
}

var rootCmd = &cobra.Command{
	Use:   "parlo",
	Short: "Parlo is a language-learning companion for spoken audio",
	Long: `Parlo analyzes a recording into a segmented transcript with native
rewrites and translations, plays it back in sync, speaks any sentence
aloud, and scores your own shadowing attempts.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio-file>",
	Short: "Analyze a recording and open the transcript player",
	Args:  cobra.ExactArgs(1),
	Run:   runAnalyze,
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List past analyses",
	Run:   runList,
}

var showCmd = &cobra.Command{
	Use:   "show <history-id>",
	Short: "Open a past analysis (transcript only; audio is not persisted)",
	Args:  cobra.ExactArgs(1),
	Run:   runShow,
}

var rmCmd = &cobra.Command{
	Use:   "rm <history-id>",
	Short: "Delete a past analysis",
	Args:  cobra.ExactArgs(1),
	Run:   runRemove,
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize text as native speech and play it",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSpeak,
}

var defineCmd = &cobra.Command{
	Use:   "define <word> [sentence]",
	Short: "Look up a word, optionally in the context of a sentence",
	Args:  cobra.MinimumNArgs(1),
	Run:   runDefine,
}

var shadowCmd = &cobra.Command{
	Use:   "shadow <history-id> <segment-id>",
	Short: "Practice a sentence aloud and get a pronunciation score",
	Args:  cobra.ExactArgs(2),
	Run:   runShadow,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history API and follow-along feed over HTTP",
	Run:   runServe,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure API keys",
	Run: func(cmd *cobra.Command, args []string) {
		runSetup()
	},
}

func openStore(ctx context.Context) *history.Store {
	store := history.NewStore(viper.GetString(config.KeyDBPath))
	if err := store.Init(ctx); err != nil {
		logger.Fatal("initialize history store", "error", err)
	}
	return store
}

func newInferenceClient(ctx context.Context) *gemini.Client {
	client, err := gemini.New(ctx,
		viper.GetString(config.KeyGeminiAPIKey),
		viper.GetString(config.KeyDeepSeekAPIKey),
		logger,
	)
	if err != nil {
		logger.Fatal("create inference client", "error", err)
	}
	return client
}

func audioMIMEType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "audio/mpeg"
}

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	path := args[0]

	audioData, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("read audio file", "path", path, "error", err)
	}

	client := newInferenceClient(ctx)
	defer client.Close()

	store := openStore(ctx)
	ctrl := player.New()
	sess := session.New(store, client, ctrl, logger)

	transport := player.NewClockTransport(0, 0)
	analysis, err := sess.Analyze(ctx, filepath.Base(path), audioData, audioMIMEType(path), transport)
	if err != nil {
		logger.Fatal("analysis failed", "error", err)
	}
	transport.SetDuration(analysis.Metadata.Duration)

	if noTUI, _ := cmd.Flags().GetBool("no-tui"); noTUI {
		printTranscript(analysis)
		return
	}
	stopFeed := startLiveFeed(cmd, store, ctrl)
	defer stopFeed()
	if err := tui.Run(ctrl, analysis, filepath.Base(path), false); err != nil {
		logger.Fatal("player failed", "error", err)
	}
}

// startLiveFeed serves the follow-along websocket feed alongside the
// TUI when --live is set. The returned func shuts the server down.
func startLiveFeed(cmd *cobra.Command, store *history.Store, ctrl *player.Controller) func() {
	if live, _ := cmd.Flags().GetBool("live"); !live {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		port := viper.GetInt(config.KeyWebPort)
		if err := web.Serve(ctx, port, store, ctrl, logger); err != nil {
			logger.Error("follow-along feed failed", "error", err)
		}
	}()
	return cancel
}

func printTranscript(analysis *segment.Analysis) {
	fmt.Printf("CEFR %s · %.0f wpm · %d words · %.1fs\n\n",
		analysis.Metadata.CEFR, analysis.Metadata.WPM,
		analysis.Metadata.WordCount, analysis.Metadata.Duration)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Start", "Text", "Native Rewrite"})
	table.SetAutoWrapText(true)
	for _, s := range analysis.Segments {
		table.Append([]string{
			strconv.Itoa(s.ID),
			fmt.Sprintf("%.1fs", s.Start),
			s.Text,
			s.NativeRewrite,
		})
	}
	table.Render()
}

func runList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)

	items, err := store.List(ctx)
	if err != nil {
		logger.Fatal("list history", "error", err)
	}
	if len(items) == 0 {
		fmt.Println("No analyses yet. Run: parlo analyze <audio-file>")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "File", "Date", "CEFR", "Segments"})
	for _, item := range items {
		table.Append([]string{
			item.ID,
			item.Filename,
			item.Date,
			item.Analysis.Metadata.CEFR,
			strconv.Itoa(len(item.Analysis.Segments)),
		})
	}
	table.Render()
}

func runShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)
	ctrl := player.New()
	sess := session.New(store, nil, ctrl, logger)

	item, err := sess.LoadHistory(ctx, args[0])
	if err != nil {
		logger.Fatal("load history item", "id", args[0], "error", err)
	}
	analysis := sess.Analysis()
	stopFeed := startLiveFeed(cmd, store, ctrl)
	defer stopFeed()
	if err := tui.Run(ctrl, analysis, item.Filename, true); err != nil {
		logger.Fatal("player failed", "error", err)
	}
}

func runRemove(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)
	if err := store.Delete(ctx, args[0]); err != nil {
		logger.Fatal("delete history item", "id", args[0], "error", err)
	}
	logger.Info("deleted", "id", args[0])
}

func speechGenerator(useElevenLabs bool, client *gemini.Client) tts.SpeechGenerator {
	if useElevenLabs {
		key := viper.GetString(config.KeyElevenLabsAPIKey)
		if key == "" {
			logger.Fatal("elevenlabs requested but no API key configured")
		}
		return tts.NewElevenLabsSpeechGenerator(key, viper.GetString(config.KeyElevenLabsVoice))
	}
	return client
}

func runSpeak(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	text := strings.Join(args, " ")

	client := newInferenceClient(ctx)
	defer client.Close()

	useElevenLabs, _ := cmd.Flags().GetBool("elevenlabs")
	gen := speechGenerator(useElevenLabs, client)
	pcm, err := gen.Synthesize(ctx, text)
	if err != nil {
		logger.Fatal("speech synthesis failed", "error", err)
	}

	if wavPath, _ := cmd.Flags().GetString("wav"); wavPath != "" {
		f, err := os.Create(wavPath)
		if err != nil {
			logger.Fatal("create wav file", "error", err)
		}
		defer f.Close()
		pipeline := speech.NewPipeline(func() (speech.OutputDevice, error) {
			return &speech.WriterDevice{W: f}, nil
		})
		if err := playAndWait(pipeline, pcm); err != nil {
			logger.Fatal("encode wav", "error", err)
		}
		logger.Info("wrote wav", "path", wavPath, "bytes", len(pcm))
		return
	}

	pipeline := speech.NewPipeline(func() (speech.OutputDevice, error) {
		return speech.NewCommandDevice(logger), nil
	})
	if err := playAndWait(pipeline, pcm); err != nil {
		logger.Fatal("playback failed", "error", err)
	}
}

func playAndWait(pipeline *speech.Pipeline, pcm []byte) error {
	handle, err := pipeline.Play(pcm, nil)
	if err != nil {
		return err
	}
	<-handle.Done()
	return nil
}

func runDefine(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	word := args[0]
	sentence := strings.Join(args[1:], " ")

	client := newInferenceClient(ctx)
	defer client.Close()

	def, err := client.Define(ctx, word, sentence)
	if err != nil {
		logger.Fatal("definition lookup failed", "error", err)
	}

	md := fmt.Sprintf("# %s  %s\n\n%s\n\n> %s\n",
		def.Word, def.Phonetic, def.Definition, def.Example)
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

func runShadow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)

	item, ok, err := store.Get(ctx, args[0])
	if err != nil || !ok {
		logger.Fatal("load history item", "id", args[0], "error", err)
	}
	segID, err := strconv.Atoi(args[1])
	if err != nil {
		logger.Fatal("segment id must be a number", "got", args[1])
	}

	var target *segment.Segment
	for i := range item.Analysis.Segments {
		if item.Analysis.Segments[i].ID == segID {
			target = &item.Analysis.Segments[i]
		}
	}
	if target == nil {
		logger.Fatal("segment not found", "id", segID)
	}

	client := newInferenceClient(ctx)
	defer client.Close()

	fmt.Printf("\nTarget sentence:\n  %q\n\n", target.NativeRewrite)
	fmt.Println("Recording... press Enter to stop.")

	sess := capture.NewSession(capture.NewCommandMicrophone(), client, logger)
	done := make(chan capture.State, 1)
	sess.SetChangeListener(func(st capture.State) {
		if st.Phase == capture.PhaseScored || st.Phase == capture.PhaseFailed {
			done <- st
		}
	})

	if err := sess.Start(ctx); err != nil {
		logger.Fatal("could not start recording", "error", err)
	}
	fmt.Scanln()
	sess.Stop(ctx, target.NativeRewrite)
	fmt.Println("Scoring...")

	select {
	case st := <-done:
		if st.Phase == capture.PhaseFailed {
			logger.Fatal("scoring failed", "error", st.Err)
		}
		printScore(*st.Score)
	case <-time.After(2 * time.Minute):
		sess.Teardown()
		logger.Fatal("scoring timed out")
	}
}

func printScore(score segment.PronunciationScore) {
	band := "Keep practicing"
	if score.IsGood() {
		band = "Sounding native"
	}
	md := fmt.Sprintf("# %d / 100 — %s\n\n**%s**\n\n%s\n",
		score.Score, score.Rating, band, score.Feedback)
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	store := openStore(ctx)
	port := viper.GetInt(config.KeyWebPort)
	if err := web.Serve(ctx, port, store, nil, logger); err != nil {
		logger.Fatal("http server failed", "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
