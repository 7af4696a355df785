// Package database builds the PostgreSQL connection pool used by the event
// journal. TimescaleDB works unchanged since only plain INSERTs are issued.
package database
