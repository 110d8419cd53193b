// Package calendar provides a read-only client for the Google Calendar API.
//
// Clients are authorized by a google.TokenProvider, normally the live
// session manager, and are cheap enough to build per request:
//
//	client, err := calendar.NewClient(ctx, manager)
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListEvents(ctx, calendar.ListOptions{
//	    TimeMin: time.Now(),
//	    TimeMax: time.Now().AddDate(0, 0, 7),
//	})
package calendar
