package depgraph

import "github.com/minio/highwayhash"

// hashKey is a fixed, arbitrary 32-byte key; Node identity hashing has no
// adversarial input, so a constant key is adequate (highwayhash still
// requires one of exactly this length).
var hashKey = []byte("CLGRAPHNODEIDENTITYHASHKEY012345")

// computeHash derives a stable 64-bit identifier for a node's qualified
// name, used by the export package for DOT-safe, collision-resistant
// node IDs. A key-construction failure can only mean hashKey's length is
// wrong; hashKey is a fixed 32-byte literal, so it is treated as
// unreachable.
func computeHash(qualifiedName string) uint64 {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		panic(err)
	}
	_, _ = h.Write([]byte(qualifiedName))
	return h.Sum64()
}
