package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/timzifer/natsconn/conn"
	"github.com/timzifer/natsconn/options"
)

// resolvedView is the printable form of options.Options.
type resolvedView struct {
	URL            string               `yaml:"url,omitempty"`
	Servers        []string             `yaml:"servers"`
	Credentials    *options.Credentials `yaml:"credentials,omitempty"`
	Secure         bool                 `yaml:"secure"`
	TLS            options.TLSSettings  `yaml:"tls,omitempty"`
	Name           string               `yaml:"name,omitempty"`
	NoRandomize    bool                 `yaml:"no_randomize"`
	AllowReconnect bool                 `yaml:"allow_reconnect"`
	MaxReconnect   int                  `yaml:"max_reconnect"`
	ReconnectWait  string               `yaml:"reconnect_wait"`
	Timeout        string               `yaml:"timeout"`
	PingInterval   string               `yaml:"ping_interval"`
	MaxPingsOut    int                  `yaml:"max_pings_out"`
	Encoder        string               `yaml:"encoder"`
}

func viewOf(opts options.Options) resolvedView {
	view := resolvedView{
		URL:            options.RedactURL(opts.URL),
		Servers:        opts.Servers,
		Secure:         opts.Secure,
		TLS:            opts.TLS,
		Name:           opts.Name,
		NoRandomize:    opts.NoRandomize,
		AllowReconnect: opts.AllowReconnect,
		MaxReconnect:   opts.MaxReconnect,
		ReconnectWait:  opts.ReconnectWait.String(),
		Timeout:        opts.Timeout.String(),
		PingInterval:   opts.PingInterval.String(),
		MaxPingsOut:    opts.MaxPingsOut,
		Encoder:        opts.Encoder,
	}
	if opts.Credentials != nil {
		redacted := opts.Credentials.Redacted()
		view.Credentials = &redacted
	}
	return view
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Print the resolved connection options without connecting",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			opts, err := rt.cfg.Connection.Options()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(c.App.Writer)
			enc.SetIndent(2)
			if err := enc.Encode(viewOf(opts)); err != nil {
				return fmt.Errorf("render options: %w", err)
			}
			return enc.Close()
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Connect and measure the round trip time to the server",
		Action: func(c *cli.Context) error {
			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			opts, err := rt.cfg.Connection.Options()
			if err != nil {
				return err
			}
			nc, err := rt.factory.ConnectOptions(opts)
			if err != nil {
				return err
			}
			defer nc.Close()

			rtt, err := nc.RTT()
			if err != nil {
				return fmt.Errorf("rtt: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "connected to %s rtt=%s\n", nc.ConnectedURL(), rtt)
			return nil
		},
	}
}

func pubCommand() *cli.Command {
	return &cli.Command{
		Name:      "pub",
		Usage:     "Publish a message",
		ArgsUsage: "SUBJECT MESSAGE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "encoded",
				Usage: "Send MESSAGE through the configured encoder",
			},
			&cli.DurationFlag{
				Name:  "request",
				Usage: "Wait this long for a reply and print it",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("pub requires SUBJECT and MESSAGE")
			}
			subject, message := c.Args().Get(0), c.Args().Get(1)

			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			opts, err := rt.cfg.Connection.Options()
			if err != nil {
				return err
			}

			if c.Bool("encoded") {
				ec, err := rt.factory.ConnectEncodedOptions(opts)
				if err != nil {
					return err
				}
				defer ec.Close()
				if timeout := c.Duration("request"); timeout > 0 {
					reply, err := conn.Request[string](ec, subject, message, timeout)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, reply)
					return nil
				}
				if err := ec.Publish(subject, message); err != nil {
					return err
				}
				return ec.Flush(opts.Timeout)
			}

			nc, err := rt.factory.ConnectOptions(opts)
			if err != nil {
				return err
			}
			defer nc.Close()
			if timeout := c.Duration("request"); timeout > 0 {
				reply, err := nc.Request(subject, []byte(message), timeout)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, string(reply.Data))
				return nil
			}
			if err := nc.Publish(subject, []byte(message)); err != nil {
				return err
			}
			return nc.Flush(opts.Timeout)
		},
	}
}

func subCommand() *cli.Command {
	return &cli.Command{
		Name:      "sub",
		Usage:     "Print messages received on a subject",
		ArgsUsage: "SUBJECT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "queue",
				Usage: "Join this queue group",
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "Exit after this many messages, 0 for no limit",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Exit after this long, 0 for no limit",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("sub requires SUBJECT")
			}
			subject := c.Args().First()

			rt, err := runtimeFrom(c)
			if err != nil {
				return err
			}
			opts, err := rt.cfg.Connection.Options()
			if err != nil {
				return err
			}
			nc, err := rt.factory.ConnectOptions(opts)
			if err != nil {
				return err
			}
			defer nc.Close()

			messages := make(chan *conn.Msg, 64)
			sub, err := nc.QueueSubscribe(subject, c.String("queue"), func(msg *conn.Msg) {
				select {
				case messages <- msg:
				default:
					rt.logger.Warn().Str("subject", msg.Subject).Msg("dropping message, output is slow")
				}
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()
			if err := nc.Flush(opts.Timeout); err != nil {
				return err
			}
			rt.logger.Info().Str("subject", subject).Str("queue", c.String("queue")).Msg("subscribed")

			var deadline <-chan time.Time
			if timeout := c.Duration("timeout"); timeout > 0 {
				timer := time.NewTimer(timeout)
				defer timer.Stop()
				deadline = timer.C
			}

			limit := c.Int("count")
			for received := 0; limit == 0 || received < limit; {
				select {
				case msg := <-messages:
					received++
					fmt.Fprintf(c.App.Writer, "[#%d] %s: %s\n", received, msg.Subject, msg.Data)
				case <-deadline:
					return fmt.Errorf("timeout after %d messages", received)
				case <-c.Context.Done():
					return nil
				}
			}
			return nil
		},
	}
}
