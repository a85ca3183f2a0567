// Package contacts implements persistence for the contact directory.
//
// Every store keeps the directory as an ordered list of contact records and
// exposes the Repository interface the directory depends on. FileRepository
// writes protojson to disk, SQLiteRepository keeps one row per contact and
// RedisRepository stores the encoded list under a single key.
package contacts
