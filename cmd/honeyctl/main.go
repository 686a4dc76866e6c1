package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/honeypot/pkg/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	apiKey    string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "honeyctl",
	Short: "Command-line client for the honeypot API",
	Long: `honeyctl talks to a running honeypot server.

It can submit probe messages, dump the engagement log, show the scoring
table, and follow new engagements live.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.honeyctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("honeyctl")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if apiKey == "" {
			apiKey = viper.GetString("api_key")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.honeyctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "honeypot base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "shared secret sent as x-api-key")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithAPIKey(apiKey))
}

// ── probe ────────────────────────────────────────────────────────────────────

var probeFormat string

var probeCmd = &cobra.Command{
	Use:   "probe <text...>",
	Short: "Submit a message and print the honeypot's verdict",
	Example: `  honeyctl probe "Your account is blocked, share the OTP"
  honeyctl probe --format json urgent refund`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		res, err := c.Validate(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}

		if probeFormat == "json" {
			return printJSON(res)
		}
		fmt.Printf("Risk score:  %d\n", res.RiskScore)
		fmt.Printf("Risk level:  %s\n", res.RiskLevel)
		fmt.Printf("Triggers:    %s\n", joinOrDash(res.DetectedTriggers))
		fmt.Printf("Reply:       %s\n", res.AgentReplySent)
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeFormat, "format", "text", "Output format: text or json")
}

// ── logs ─────────────────────────────────────────────────────────────────────

var (
	logsFormat   string
	logsMinLevel string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Dump the honeypot's engagement log",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		recs, err := c.Logs(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch logs: %w", err)
		}
		recs = filterByLevel(recs, logsMinLevel)

		if logsFormat == "json" {
			return printJSON(recs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tIP\tSCORE\tLEVEL\tTRIGGERS\tMESSAGE")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
				r.Timestamp.Format(time.RFC3339), r.IP, r.RiskScore, r.RiskLevel,
				joinOrDash(r.DetectedTriggers), truncate(r.Message, 60))
		}
		return w.Flush()
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format: text or json")
	logsCmd.Flags().StringVar(&logsMinLevel, "min-level", "", "Only show records at or above this level (LOW, MEDIUM, HIGH)")
}

// ── config ───────────────────────────────────────────────────────────────────

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the server's keyword table, thresholds and reply lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		cfg, err := c.Config(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch config: %w", err)
		}
		return printJSON(cfg)
	},
}

// ── tail ─────────────────────────────────────────────────────────────────────

var tailMinLevel string

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow new engagements as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return c.Stream(ctx, strings.ToUpper(tailMinLevel), func(r client.Record) {
			fmt.Printf("%s  %-15s  %3d %-6s  %s\n",
				r.Timestamp.Format(time.RFC3339), r.IP, r.RiskScore, r.RiskLevel, truncate(r.Message, 60))
		})
	},
}

func init() {
	tailCmd.Flags().StringVar(&tailMinLevel, "min-level", "", "Only show records at or above this level")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the honeyctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("honeyctl %s\n", version)
	},
}

// ── helpers ──────────────────────────────────────────────────────────────────

var levelRank = map[string]int{"SAFE": 0, "LOW": 1, "MEDIUM": 2, "HIGH": 3}

// filterByLevel keeps records whose level ranks at or above minLevel.
func filterByLevel(recs []client.Record, minLevel string) []client.Record {
	if minLevel == "" {
		return recs
	}
	floor := levelRank[strings.ToUpper(minLevel)]
	out := recs[:0:0]
	for _, r := range recs {
		if levelRank[r.RiskLevel] >= floor {
			out = append(out, r)
		}
	}
	return out
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
