// Package credentials owns the Drip API token and account ID.
//
// Values are cleaned and the account ID normalized on the way in, so
// everything downstream sees one canonical form. Saving notifies the
// registered listeners with the previous and new pair; the connection
// validator uses this to drop cached status for both.
//
// The service layer depends on the Repository interface defined in
// repository.go. It never imports net/http or database/sql directly.
package credentials
