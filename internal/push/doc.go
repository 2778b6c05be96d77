// Package push submits messages to a running socketd server through its
// admin port.
//
// A push is fire-and-forget: the client opens a TCP connection, writes one
// JSON object and closes. The server does not acknowledge it, so a nil error
// only means the bytes were handed to the kernel.
//
//	client := push.NewClient("127.0.0.1:9001")
//	client.MaxRetries = 3
//
//	if err := client.SendToUser(ctx, "42", "your order shipped"); err != nil {
//	    fmt.Println(push.GetShortErrorMessage(err))
//	}
//
// Dial failures are classified into an *Error. Retryable ones (refused,
// timeout, unreachable) are retried with exponential backoff.
package push
