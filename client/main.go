package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.design/x/hotkey/mainthread"

	"micctl/audio"
	"micctl/audio/portaudio"
	"micctl/common/logger"
	"micctl/config"
	"micctl/hotkey"
	"micctl/hotkey/native"
)

type cliOptions struct {
	configPath string
	debug      bool
	logDir     string
}

func main() {
	// Native keyboard hotkeys need the process main thread on some
	// platforms, so the CLI runs inside mainthread.
	mainthread.Init(func() {
		if err := newRootCmd().Execute(); err != nil {
			os.Exit(1)
		}
	})
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "micctl",
		Short:         "Gate a physical microphone into a virtual microphone with a global hotkey",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(cmd.Name(), logger.Options{Dir: opts.logDir}); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			logger.SetDebugMode(opts.debug)
			if opts.configPath == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				opts.configPath = p
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (.json, .yaml or .yml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.logDir, "log-dir", "", "directory for the rotating log file")

	root.AddCommand(
		newRunCmd(opts),
		newTUICmd(opts),
		newDevicesCmd(opts),
		newBindingCmd(),
		newRouteCmd(opts),
	)
	return root
}

// withPortAudio runs fn between portaudio.Initialize and Terminate.
func withPortAudio(fn func(dir audio.Directory) error) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()
	logger.Info("PortAudio initialized: %s", portaudio.VersionText())
	return fn(portaudio.New())
}

func newApp(opts *cliOptions, dir audio.Directory) (*AppState, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Config loaded from %s", opts.configPath)
	return NewAppState(cfg, opts.configPath, dir, native.New), nil
}

// launchCommand is the command line registered to run at logon.
func launchCommand(exe, cfgPath string) string {
	cmd := fmt.Sprintf(`"%s" run`, exe)
	if cfgPath != "" {
		cmd += fmt.Sprintf(` --config "%s"`, cfgPath)
	}
	return cmd
}

// autostart refreshes the logon entry, registers the configured hotkey and
// brings the engine up when a route is saved. Failures are reported but not
// fatal.
func autostart(app *AppState) {
	if err := app.ApplyLaunchOnStartup(); err != nil {
		logger.Warn("Launch on startup: %v", err)
	}
	if err := app.RegisterConfiguredHotkey(); err != nil {
		logger.Error("Hotkey registration failed: %v", err)
	}
	if app.Config().Route.Validate() != nil {
		app.AddMessage("No device route saved yet; pick devices to start the engine", "info")
		return
	}
	if err := app.StartEngine(); err != nil {
		logger.Error("Engine autostart failed: %v", err)
	}
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var openUI bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run headless with the web control panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPortAudio(func(dir audio.Directory) error {
				app, err := newApp(opts, dir)
				if err != nil {
					return err
				}
				defer app.Shutdown()

				web := NewWebServer(app)
				addr, err := web.Start(app.Config().Web.Addr)
				if err != nil {
					return err
				}
				url := "http://" + addr
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					web.Shutdown(ctx)
				}()

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				autostart(app)

				if app.Config().MinimizeToTray {
					tray := NewTray(app, url, stop)
					if err := tray.Start(); err != nil {
						logger.Warn("Tray unavailable: %v", err)
					} else {
						defer tray.Stop()
					}
				}
				if openUI {
					if err := openBrowser(url); err != nil {
						logger.Warn("Could not open control panel: %v", err)
					}
				}

				app.AddMessage("micctl ready, control panel at "+url, "info")
				<-ctx.Done()
				logger.Info("Shutting down")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&openUI, "open", false, "open the control panel in a browser")
	return cmd
}

func newTUICmd(opts *cliOptions) *cobra.Command {
	var withWeb bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run with the terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPortAudio(func(dir audio.Directory) error {
				app, err := newApp(opts, dir)
				if err != nil {
					return err
				}
				defer app.Shutdown()

				if withWeb {
					web := NewWebServer(app)
					if _, err := web.Start(app.Config().Web.Addr); err != nil {
						return err
					}
					defer web.Shutdown(context.Background())
				}

				ui := NewTUI(app)
				logger.SetConsole(ui.LogWriter())
				defer logger.SetConsole(os.Stdout)

				go autostart(app)
				return ui.Run()
			})
		},
	}
	cmd.Flags().BoolVar(&withWeb, "web", false, "also serve the web control panel")
	return cmd
}

func newDevicesCmd(opts *cliOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices and the virtual microphone status",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.SetConsole(nil)
			return withPortAudio(func(dir audio.Directory) error {
				list, err := dir.List()
				if err != nil {
					return err
				}
				vm := audio.DetectVirtualMic(dir)
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(struct {
						Devices    audio.DeviceList       `json:"devices"`
						VirtualMic audio.VirtualMicStatus `json:"virtual_mic"`
					}{list, vm})
				}
				printDevices(out, list)
				fmt.Fprintf(out, "\nVirtual mic: ready=%t (%s)\n", vm.Ready, vm.Detail)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printDevices(out io.Writer, list audio.DeviceList) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIRECTION\tID\tDEFAULT\tVIRTUAL")
	for _, group := range [][]audio.DeviceInfo{list.Inputs, list.Outputs} {
		for _, d := range group {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", d.Direction, d.ID, d.IsDefault, d.IsVirtualCandidate)
		}
	}
	tw.Flush()
}

func newBindingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "binding <accelerator>",
		Short: "Check how an accelerator would be registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if hotkey.IsMouseAccelerator(args[0]) {
				b, err := hotkey.ParseMouseBinding(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "mouse hook: %s\n", b)
				return nil
			}
			b, err := hotkey.ParseKeyBinding(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "keyboard accelerator: %s\n", b)
			return nil
		},
	}
}

func newRouteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route <input-device-id> <output-device-id>",
		Short: "Save the device route used by the engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			cfg.Route = audio.Route{InputDeviceID: args[0], OutputDeviceID: args[1]}
			if err := cfg.Route.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "route saved to %s\n", opts.configPath)
			return nil
		},
	}
}
