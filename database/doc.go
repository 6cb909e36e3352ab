/*
Package database provides optimistic locking for rows of registered tables.

A database is opened with a storage type and location. Tables are
registered with their primary key and data columns, and get three
bookkeeping columns: creation time, update time and the version counter.

Loading a row returns a *record.Record with a snapshot of its attributes.
Writes go through the occ package: a write only applies if the stored
version still equals the version of the record, and increments it.

	db, err := database.Open("main", "sqlite", "/var/lib/app")
	table, err := db.RegisterTable(ctx, "tickets", "id", "title", "status")
	r, err := db.Load(ctx, "tickets", id)
	_ = r.Set("status", "closed")
	res, err := db.Writer().Save(ctx, r, "status = ?", "open")
	if errors.Is(err, occ.ErrStaleObject) {
		// reload and try again
	}
*/
package database
