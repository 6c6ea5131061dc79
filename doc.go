// Package natsconn establishes NATS connections from a URL, a secure URL, an
// options value or the library defaults.
//
// Every entry point resolves a fresh options.Options, builds the requested
// connection variant and performs the synchronous handshake. Configuration
// problems are reported as *options.ConfigurationError before any network I/O;
// handshake failures are returned exactly as the connection produced them.
//
//	nc, err := natsconn.Connect("nats://user:pass@a:4222,nats://b:4222")
//	if err != nil {
//		return err
//	}
//	defer nc.Close()
package natsconn
