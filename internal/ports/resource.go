package ports

// StorageProbe reports free space on the volume holding path.
type StorageProbe interface {
	FreeBytes(path string) (uint64, error)
}
