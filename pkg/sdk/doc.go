// Package flagdeck is a Go client for the flagdeck image review API.
//
// A client opens a review session, narrows the dataset with filter criteria,
// flags records whose images look wrong and downloads the flagged set as CSV.
//
//	client, _ := flagdeck.New("http://localhost:8080", flagdeck.WithAPIKey(key))
//	sess, _ := client.CreateSession(ctx)
//	page, _ := sess.ApplyCriteria(ctx, flagdeck.Criteria{Attribute: "color", ConfidenceMin: 0.5, ConfidenceMax: 1})
//	_, _ = sess.Flag(ctx, page.Items[0].RowID)
//	csv, _ := sess.Export(ctx)
package flagdeck
