// Package console wires the session and notification core together.
//
// Every instance is constructed once by New and handed to the components
// that need it:
//
//	cfg, _ := config.Load(".")
//	c, err := console.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if err := c.Start(ctx); err != nil {
//	    return err
//	}
//	c.Login(ctx, console.BasicToken("user", "pass"), false)
//
// Start runs the push channel in the background. Notifications received
// over it are stored in Notifications. Handler serves a read-only status
// view with Prometheus metrics.
package console
