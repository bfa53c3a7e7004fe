package db

// LatestSchemaVersion is the schema version this build creates and
// migrates stores to.
func LatestSchemaVersion() int {
	return currentSchemaVersion
}
