// Package gmail provides a read-only client for the Gmail API.
//
// The client is authorized by a google.TokenProvider, normally the live
// session manager. It lists messages with their summary headers and reads
// the mailbox profile:
//
//	client, err := gmail.NewClient(ctx, manager)
//	if err != nil {
//	    return err
//	}
//	messages, err := client.ListMessages(ctx, "in:inbox is:unread", 20)
package gmail
