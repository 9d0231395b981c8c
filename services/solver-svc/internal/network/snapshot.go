package network

import (
	"encoding/binary"
	"io"
	"math"
	"sort"

	"lottery/pkg/apperror"
)

const snapshotHeaderSize = 4 * 4

// Snapshot is the full diagnostic state of a network.
//
// Binary layout, little endian: int32 source, sink, numNodes, words; then
// words int64 values: distance[n], parent[n], flow[n*n], cost[n*n],
// capacity[n*n], matrices row-major.
type Snapshot struct {
	Source   int
	Sink     int
	NumNodes int
	Distance []int64
	Parent   []int64
	Flow     []int64
	Cost     []int64
	Capacity []int64
}

// Snapshot copies the current state of the network.
func (n *Network) Snapshot() *Snapshot {
	parent := make([]int64, n.numNodes)
	for i, p := range n.parent {
		parent[i] = int64(p)
	}
	distance := make([]int64, n.numNodes)
	copy(distance, n.distance)

	return &Snapshot{
		Source:   n.source,
		Sink:     n.sink,
		NumNodes: n.numNodes,
		Distance: distance,
		Parent:   parent,
		Flow:     n.flow.Values(),
		Cost:     n.cost.Values(),
		Capacity: n.capacity.Values(),
	}
}

// Words returns the number of int64 values following the header.
func (s *Snapshot) Words() int {
	return 2*s.NumNodes + 3*s.NumNodes*s.NumNodes
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	words := s.Words()
	if words > math.MaxInt32 {
		return nil, apperror.Newf(apperror.CodeInvalidSnapshot, "snapshot of %d nodes does not fit the int32 header", s.NumNodes)
	}

	buf := make([]byte, snapshotHeaderSize+8*words)
	binary.LittleEndian.PutUint32(buf[0:], uint32(int32(s.Source)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(s.Sink)))
	binary.LittleEndian.PutUint32(buf[8:], uint32(int32(s.NumNodes)))
	binary.LittleEndian.PutUint32(buf[12:], uint32(int32(words)))

	off := snapshotHeaderSize
	for _, section := range s.sections() {
		for _, v := range section {
			binary.LittleEndian.PutUint64(buf[off:], uint64(v))
			off += 8
		}
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	if len(data) < snapshotHeaderSize {
		return apperror.Newf(apperror.CodeInvalidSnapshot, "snapshot too short: %d bytes", len(data))
	}

	source := int(int32(binary.LittleEndian.Uint32(data[0:])))
	sink := int(int32(binary.LittleEndian.Uint32(data[4:])))
	numNodes := int(int32(binary.LittleEndian.Uint32(data[8:])))
	words := int(int32(binary.LittleEndian.Uint32(data[12:])))

	if numNodes < 2 || words != 2*numNodes+3*numNodes*numNodes {
		return apperror.Newf(apperror.CodeInvalidSnapshot, "inconsistent header: %d nodes, %d words", numNodes, words)
	}
	if len(data) != snapshotHeaderSize+8*words {
		return apperror.Newf(apperror.CodeInvalidSnapshot, "expected %d bytes, got %d", snapshotHeaderSize+8*words, len(data))
	}

	nn := numNodes * numNodes
	*s = Snapshot{
		Source:   source,
		Sink:     sink,
		NumNodes: numNodes,
		Distance: make([]int64, numNodes),
		Parent:   make([]int64, numNodes),
		Flow:     make([]int64, nn),
		Cost:     make([]int64, nn),
		Capacity: make([]int64, nn),
	}

	off := snapshotHeaderSize
	for _, section := range s.sections() {
		for i := range section {
			section[i] = int64(binary.LittleEndian.Uint64(data[off:]))
			off += 8
		}
	}
	return s.validate()
}

// WriteTo writes the binary form of the snapshot.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	data, err := s.MarshalBinary()
	if err != nil {
		return 0, err
	}
	written, err := w.Write(data)
	return int64(written), err
}

// ReadSnapshot reads a binary snapshot from r.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidSnapshot, "failed to read snapshot")
	}
	var s Snapshot
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromSnapshot rebuilds a network for offline replay. Neighbor lists are
// derived from the arcs with non-zero capacity and sorted, so the original
// insertion order is not recovered.
func FromSnapshot(s *Snapshot) (*Network, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	net, err := New(s.NumNodes)
	if err != nil {
		return nil, err
	}
	if s.Source != net.source || s.Sink != net.sink {
		return nil, apperror.Newf(apperror.CodeInvalidSnapshot,
			"source %d and sink %d do not match a %d node network", s.Source, s.Sink, s.NumNodes)
	}

	net.cost.load(s.Cost)
	net.capacity.load(s.Capacity)
	net.flow.load(s.Flow)
	copy(net.distance, s.Distance)
	for i, p := range s.Parent {
		net.parent[i] = int(p)
	}

	n := s.NumNodes
	seen := make([]map[int]bool, n)
	for u := range seen {
		seen[u] = make(map[int]bool)
	}
	link := func(a, b int) {
		if !seen[a][b] {
			seen[a][b] = true
			net.neighbors[a] = append(net.neighbors[a], b)
		}
	}
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if s.Capacity[u*n+v] != 0 {
				link(u, v)
				link(v, u)
				net.arcs++
			}
		}
	}
	for u := range net.neighbors {
		sort.Ints(net.neighbors[u])
	}

	return net, nil
}

func (s *Snapshot) sections() [][]int64 {
	return [][]int64{s.Distance, s.Parent, s.Flow, s.Cost, s.Capacity}
}

func (s *Snapshot) validate() error {
	n := s.NumNodes
	if n < 2 {
		return apperror.Newf(apperror.CodeInvalidSnapshot, "snapshot needs at least 2 nodes, got %d", n)
	}
	if len(s.Distance) != n || len(s.Parent) != n ||
		len(s.Flow) != n*n || len(s.Cost) != n*n || len(s.Capacity) != n*n {
		return apperror.New(apperror.CodeInvalidSnapshot, "snapshot sections do not match the node count")
	}
	if s.Source < 0 || s.Source >= n || s.Sink < 0 || s.Sink >= n {
		return apperror.Newf(apperror.CodeInvalidSnapshot, "source %d or sink %d out of range", s.Source, s.Sink)
	}
	return nil
}
