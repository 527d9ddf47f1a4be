package core

const (
	OneKilobyte = 1024
	OneMegabyte = 1024 * OneKilobyte
	OneGigabyte = 1024 * OneMegabyte

	DefaultValueSize   = OneKilobyte
	DefaultMaxFileSize = OneGigabyte
	DefaultStorageDir  = "./storage"
	DefaultTimeFormat  = "2006-01-02 15:04:05.000000"
	DefaultNamePrefix  = "slotkv-"

	MetaFileSuffix = "_meta"
	LockFileSuffix = ".lock"

	// Keys must be strictly shorter than this many UTF-8 bytes.
	MaxKeySize = 32

	// Value files and their metadata are created with these permissions.
	filePerm = 0644
	dirPerm  = 0755
)
