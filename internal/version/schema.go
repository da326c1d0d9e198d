package version

// ImageSchemaVersion increments when Dockerfile generation changes require image rebuilds.
//
// Bump for:
//   - Dockerfile generation logic changes
//   - Label format changes
//   - Entrypoint/CMD format changes
//
// Don't bump for:
//   - CLI-only changes
//   - Bug fixes not affecting image content
const ImageSchemaVersion = 1

const ImageSchemaVersionLabel = "botpack.image_schema_version"
