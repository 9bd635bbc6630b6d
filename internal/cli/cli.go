package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbright/lrpmprobe/internal/config"
	"github.com/rbright/lrpmprobe/internal/ipc"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

type Parsed struct {
	Command    Command
	ConfigPath string
	Overrides  config.Overrides
	ShowHelp   bool
}

type flagValues struct {
	configPath  string
	socket      string
	network     string
	address     string
	command     string
	count       int
	bufferSize  int
	timeout     time.Duration
	logLevel    string
	showVersion bool
}

// Parse resolves args into a command and its flag overrides without running anything.
func Parse(args []string) (Parsed, error) {
	if args == nil {
		args = []string{}
	}

	var parsed Parsed
	root := newRoot("lrpmprobe", &parsed)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders usage for the root command.
func HelpText(binaryName string) string {
	root := newRoot(binaryName, &Parsed{})
	return root.Long + "\n\n" + root.UsageString()
}

func newRoot(binaryName string, parsed *Parsed) *cobra.Command {
	var values flagValues

	selectCommand := func(command Command) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			parsed.Command = command
			if command == CommandRun && values.showVersion {
				parsed.Command = CommandVersion
			}
			parsed.ConfigPath = values.configPath
			parsed.Overrides = collectOverrides(cmd, values)
			return nil
		}
	}

	root := &cobra.Command{
		Use:           binaryName + " [command]",
		Short:         "Probe the php-lrpm control socket",
		Long:          binaryName + " repeatedly sends a command to the php-lrpm control socket and prints each raw reply.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          selectCommand(CommandRun),
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetHelpFunc(func(*cobra.Command, []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	})

	flags := root.PersistentFlags()
	flags.StringVar(&values.configPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/lrpmprobe/config.ini)")
	flags.StringVar(&values.socket, "socket", "", "control socket path (default: /run/user/<euid>/php-lrpm/socket)")
	flags.StringVar(&values.network, "network", ipc.NetworkUnix, "endpoint network: unix|tcp|tcp4|tcp6")
	flags.StringVar(&values.address, "address", "", "endpoint address: socket path for unix, host:port for tcp")
	flags.StringVar(&values.command, "command", config.DefaultCommand, "payload sent on every iteration")
	flags.IntVarP(&values.count, "count", "n", config.DefaultIterations, "number of probe iterations")
	flags.IntVar(&values.bufferSize, "buffer-size", ipc.DefaultBufferSize, "maximum bytes read per reply")
	flags.DurationVar(&values.timeout, "timeout", 0, "per-iteration deadline, 0 blocks forever")
	flags.StringVar(&values.logLevel, "log-level", config.DefaultLogLevel, "log level: debug|info|warn|error")
	root.Flags().BoolVar(&values.showVersion, "version", false, "show version")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the probe loop (default)",
			Args:  cobra.NoArgs,
			RunE:  selectCommand(CommandRun),
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "Check the runtime directory, socket, and one roundtrip",
			Args:  cobra.NoArgs,
			RunE:  selectCommand(CommandDoctor),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			RunE:  selectCommand(CommandVersion),
		},
	)

	return root
}

func collectOverrides(cmd *cobra.Command, values flagValues) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed

	if changed("socket") {
		o.Socket = &values.socket
	}
	if changed("network") {
		o.Network = &values.network
	}
	if changed("address") {
		o.Address = &values.address
	}
	if changed("command") {
		o.Command = &values.command
	}
	if changed("count") {
		o.Iterations = &values.count
	}
	if changed("buffer-size") {
		o.BufferSize = &values.bufferSize
	}
	if changed("timeout") {
		o.Timeout = &values.timeout
	}
	if changed("log-level") {
		o.LogLevel = &values.logLevel
	}
	return o
}
