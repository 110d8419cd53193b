// Package drive provides a read-only client for the Google Drive API.
//
// A Client is bound to whatever grant its google.TokenProvider holds; in
// the server that is the session manager, so a client built after
// re-authentication uses the new session.
//
// Example usage:
//
//	client, err := drive.NewClient(ctx, manager)
//	if err != nil {
//	    return err
//	}
//	page, err := client.ListFiles(ctx, drive.ListOptions{
//	    Query:    "mimeType='application/pdf'",
//	    PageSize: 10,
//	})
package drive
