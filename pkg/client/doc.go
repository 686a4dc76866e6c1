// Package client is a Go SDK for the honeypot HTTP API.
//
// Submitting a message and reading the verdict:
//
//	c, err := client.New("http://localhost:8080", client.WithAPIKey(key))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := c.Validate(ctx, "Your account is blocked, share OTP")
//	fmt.Println(res.RiskLevel, res.DetectedTriggers, res.AgentReplySent)
//
// Dumping the engagement log (same key):
//
//	records, err := c.Logs(ctx)
//
// Following new engagements live:
//
//	err = c.Stream(ctx, "MEDIUM", func(r client.Record) {
//	    fmt.Println(r.Timestamp, r.IP, r.RiskScore)
//	})
//
// A rejected key surfaces as ErrUnauthorized from every call.
package client
