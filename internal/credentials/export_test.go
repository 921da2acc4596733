package credentials

// SaltBytes re-exports saltBytes for external test packages.
const SaltBytes = saltBytes
