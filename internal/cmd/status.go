package cmd

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Mikepicker/mailslot/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective configuration and server state",
	Long: `Display the effective mailslot configuration after merging the
config file, environment variables, and defaults. With --probe, also
connect to the configured server and report which mailslots hold
messages.`,
	RunE: runStatus,
}

var statusProbe bool // Query the running server over TCP

func init() {
	statusCmd.Flags().BoolVar(&statusProbe, "probe", false, "query the running server for mailslot occupancy")
	rootCmd.AddCommand(statusCmd)
}

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(18)
	statusWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, statusTitleStyle.Render("Registry"))
	printKV(cmd, "Instances", strconv.Itoa(cfg.Registry.Instances))
	printKV(cmd, "Capacity", strconv.Itoa(cfg.Registry.Capacity))
	printKV(cmd, "Message size", fmt.Sprintf("%d bytes", cfg.Registry.MessageSize))
	printKV(cmd, "Pop order", strings.ToLower(cfg.Registry.PopOrder))
	fmt.Fprintln(out)

	fmt.Fprintln(out, statusTitleStyle.Render("Server"))
	printKV(cmd, "Listen", cfg.Server.Listen)
	if cfg.Server.MaxConns > 0 {
		printKV(cmd, "Max connections", strconv.Itoa(cfg.Server.MaxConns))
	} else {
		printKV(cmd, "Max connections", "unlimited")
	}
	printKV(cmd, "Idle timeout", fmt.Sprintf("%ds", cfg.Server.IdleTimeoutSeconds))
	fmt.Fprintln(out)

	fmt.Fprintln(out, statusTitleStyle.Render("Logging"))
	printKV(cmd, "Level", strings.ToLower(cfg.Logging.Level))
	if cfg.Logging.File != "" {
		printKV(cmd, "File", cfg.Logging.File)
	} else {
		printKV(cmd, "File", "stderr")
	}

	if !statusProbe {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, statusTitleStyle.Render("Live state"))
	return probeServer(cmd, cfg)
}

func printKV(cmd *cobra.Command, key, value string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", statusKeyStyle.Render(key), value)
}

// probeServer connects to the configured address and issues a STAT for
// every mailslot index, reporting the ones that hold messages.
func probeServer(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	conn, err := net.DialTimeout("tcp", cfg.Server.Listen, 3*time.Second)
	if err != nil {
		fmt.Fprintln(out, statusWarnStyle.Render("server not reachable: "+err.Error()))
		return nil
	}
	defer func() { _ = conn.Close() }()
	r := bufio.NewReader(conn)

	occupied := 0
	for i := 0; i < cfg.Registry.Instances; i++ {
		count, err := statMailslot(conn, r, i)
		if err != nil {
			return fmt.Errorf("probe failed at mailslot %d: %w", i, err)
		}
		if count > 0 {
			fmt.Fprintf(out, "%s %d message(s)\n",
				statusKeyStyle.Render(fmt.Sprintf("Mailslot %d", i)), count)
			occupied++
		}
	}

	if occupied == 0 {
		fmt.Fprintln(out, statusOKStyle.Render("all mailslots empty"))
	}

	_, _ = fmt.Fprintf(conn, "QUIT\r\n")
	return nil
}

// statMailslot runs one STAT round trip and returns the occupancy.
func statMailslot(conn net.Conn, r *bufio.Reader, index int) (int, error) {
	if _, err := fmt.Fprintf(conn, "STAT %d\r\n", index); err != nil {
		return 0, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimRight(line, "\r\n")

	// Response: "+OK <occupied> <capacity>"
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "+OK" {
		return 0, fmt.Errorf("unexpected response %q", line)
	}
	return strconv.Atoi(fields[1])
}
