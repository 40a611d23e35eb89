package executors

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// idSource hands out transaction ids for records synthesized during one
// run. ULIDs generated from a monotonic entropy source are unique and
// strictly increasing within the run, so ids sort in creation order and
// the (date, id) posting order stays reproducible.
type idSource struct {
	entropy io.Reader
}

func newIDSource() *idSource {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &idSource{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// Next returns a fresh transaction id. The source is not safe for
// concurrent use; each run owns its own source, and a run is a single
// logical worker.
func (s *idSource) Next() string {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), s.entropy)
	if err != nil {
		// Only possible if entropy is exhausted or time goes backwards.
		panic(err)
	}
	return id.String()
}
