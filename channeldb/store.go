package channeldb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/lightningnetwork/lnd-gossipd/lnwire"
)

// storeVersion is the single version byte every gossip store file begins
// with. A mismatched byte on Open means the file predates this format (or
// is corrupt) and is discarded.
const storeVersion byte = 0x02

// recordHeaderLen is the length of a record's length-prefix and checksum,
// not counting the payload itself.
const recordHeaderLen = 4 + 4

// staleRewriteCount is the minimum number of records ever written before
// a rewrite is considered, so a freshly opened store with a handful of
// channels never triggers one.
const staleRewriteCount = 100

// crc32cTable is the Castagnoli CRC-32 table used for every record's
// checksum, matching the on-disk format's crc32c requirement.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// LoadStats tallies what Store.Load fed into the graph, and reports where
// (if anywhere) a corrupt tail was discarded.
type LoadStats struct {
	ChannelAnnouncements int
	ChannelUpdates       int
	NodeAnnouncements    int
	Deletes              int
	LocalAdds            int

	// Truncated is set when load stopped early because of a corrupt or
	// unreadable record.
	Truncated bool

	// TruncatedAt is the byte offset the file was truncated back to,
	// valid only when Truncated is true.
	TruncatedAt int64
}

// Store is the append-only, checksummed, versioned gossip log. It owns a
// single file descriptor for its lifetime; a write failure flips it into
// a disabled state in which Append becomes a silent no-op rather than
// aborting the process, since the in-memory graph remains authoritative
// until restart.
type Store struct {
	mu sync.Mutex

	path string
	file *os.File

	// disabled is set once a write fails; further Append calls are then
	// no-ops instead of erroring out.
	disabled bool

	// count is the number of records the file holds: those replayed by
	// Load plus those appended since, reset to the rewritten set by
	// Rewrite. Control uses it to decide when a rewrite is due.
	count uint32
}

// OpenStore opens the gossip store at path, creating it (and writing the
// version byte) if it does not exist. If the file exists but its first
// byte does not match storeVersion, the file is truncated to zero length
// and reinitialized; this is logged as unusual but is not an error.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("unable to create store directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("unable to open gossip store: %w", err)
	}

	s := &Store{path: path, file: f}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	switch {
	case info.Size() == 0:
		if err := s.writeVersionByte(); err != nil {
			f.Close()
			return nil, err
		}

	default:
		var b [1]byte
		if _, err := f.ReadAt(b[:], 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("unable to read version byte: %w", err)
		}

		if b[0] != storeVersion {
			log.Infof("gossip store version byte %#x does not match "+
				"current version %#x, reinitializing store", b[0],
				storeVersion)

			if err := f.Truncate(0); err != nil {
				f.Close()
				return nil, err
			}
			if err := s.writeVersionByte(); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	return s, nil
}

func (s *Store) writeVersionByte() error {
	if _, err := s.file.WriteAt([]byte{storeVersion}, 0); err != nil {
		return fmt.Errorf("unable to write version byte: %w", err)
	}
	return s.file.Sync()
}

// Close releases the store's file descriptor. Safe to call once,
// regardless of whether prior appends failed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.disabled = true
	return err
}

// Append writes a length-prefixed, checksummed record wrapping payload and
// returns the byte offset the record begins at, for use as the entity's
// broadcast index. Once a write has failed, Append silently becomes a
// no-op (returning index 0) rather than propagating the error further: the
// in-memory graph remains the source of truth until the process restarts.
func (s *Store) Append(payload []byte) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled || s.file == nil {
		return 0, nil
	}

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		s.disableLocked(err)
		return 0, nil
	}

	var header [recordHeaderLen]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[4:8], crc32.Checksum(payload, crc32cTable))

	if _, err := s.file.Write(header[:]); err != nil {
		s.disableLocked(err)
		return 0, nil
	}
	if _, err := s.file.Write(payload); err != nil {
		s.disableLocked(err)
		return 0, nil
	}

	s.count++
	return uint32(offset), nil
}

func (s *Store) disableLocked(err error) {
	log.Errorf("gossip store write failed, disabling further appends: %v", err)
	s.disabled = true
}

// Count returns the number of records the file holds: those replayed by
// Load plus those appended since, or the rewritten set after Rewrite.
func (s *Store) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// ShouldRewrite reports whether the staleness ratio has crossed the
// rewrite threshold: at least staleRewriteCount records written, and more
// than 10% of them dead weight.
func (s *Store) ShouldRewrite(live uint32) bool {
	s.mu.Lock()
	count := s.count
	s.mu.Unlock()

	if count < staleRewriteCount {
		return false
	}
	stale := count - live
	return stale*10 > count
}

// Load replays every record in the store into graph via its trusted
// insertion entry points, which skip signature checks and the funding
// oracle round-trip. On the first corrupt record (short read, checksum
// mismatch, unrecognized wrapper tag, or a rejected trusted insertion) the
// file is truncated back to the offset that record began at, and the
// corresponding LoadStats reflects it.
func (s *Store) Load(graph *Graph) (*LoadStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &LoadStats{}

	if _, err := s.file.Seek(1, io.SeekStart); err != nil {
		return nil, fmt.Errorf("unable to seek past version byte: %w", err)
	}

	offset := int64(1)
	for {
		recordStart := offset

		var header [recordHeaderLen]byte
		n, err := io.ReadFull(s.file, header[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Truncated = true
			stats.TruncatedAt = recordStart
			log.Warnf("gossip store short read at offset %d: %v",
				recordStart, err)
			break
		}
		offset += int64(n)

		length := binary.BigEndian.Uint32(header[0:4])
		wantCRC := binary.BigEndian.Uint32(header[4:8])

		payload := make([]byte, length)
		n, err = io.ReadFull(s.file, payload)
		offset += int64(n)
		if err != nil {
			stats.Truncated = true
			stats.TruncatedAt = recordStart
			log.Warnf("gossip store short payload read at offset %d: %v",
				recordStart, err)
			break
		}

		gotCRC := crc32.Checksum(payload, crc32cTable)
		if gotCRC != wantCRC {
			stats.Truncated = true
			stats.TruncatedAt = recordStart
			log.Warnf("gossip store checksum verification failed at "+
				"offset %d", recordStart)
			break
		}

		if err := s.dispatch(graph, payload, uint32(recordStart), stats); err != nil {
			stats.Truncated = true
			stats.TruncatedAt = recordStart
			log.Warnf("gossip store record at offset %d rejected by "+
				"graph: %v", recordStart, err)
			break
		}

		s.count++
	}

	if stats.Truncated {
		if err := s.file.Truncate(stats.TruncatedAt); err != nil {
			return stats, fmt.Errorf("unable to truncate corrupt "+
				"store tail: %w", err)
		}
	}

	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return stats, err
	}

	return stats, nil
}

// dispatch decodes payload's wrapper tag and feeds the inner message to
// the matching trusted insertion entry point on graph.
func (s *Store) dispatch(graph *Graph, payload []byte, index uint32, stats *LoadStats) error {
	msgType, err := lnwire.PeekMessageType(payload)
	if err != nil {
		return err
	}

	msg, err := lnwire.ReadMessage(bytes.NewReader(payload))
	if err != nil {
		return err
	}

	switch wrapper := msg.(type) {
	case *lnwire.ChannelAnnouncementWrapper:
		ann, err := wrapper.Announcement()
		if err != nil {
			return err
		}
		if err := graph.RoutingAddChannelAnnouncement(ann, wrapper.Capacity, index); err != nil {
			return err
		}
		stats.ChannelAnnouncements++

	case *lnwire.ChannelUpdateWrapper:
		upd, err := wrapper.Update()
		if err != nil {
			return err
		}
		if err := graph.RoutingAddChannelUpdate(upd, index); err != nil {
			return err
		}
		stats.ChannelUpdates++

	case *lnwire.NodeAnnouncementWrapper:
		ann, err := wrapper.Announcement()
		if err != nil {
			return err
		}
		if err := graph.RoutingAddNodeAnnouncement(ann, index); err != nil {
			return err
		}
		stats.NodeAnnouncements++

	case *lnwire.ChannelDeleteWrapper:
		if err := graph.ChannelDelete(wrapper.ShortChannelID); err != nil {
			return err
		}
		stats.Deletes++

	case *lnwire.LocalAddChannelWrapper:
		add, err := wrapper.LocalAdd()
		if err != nil {
			return err
		}
		if err := graph.RoutingAddLocalChannel(add, index); err != nil {
			return err
		}
		stats.LocalAdds++

	default:
		return fmt.Errorf("unexpected store record type %v", msgType)
	}

	return nil
}

// RewriteRecord is a single pre-encoded wrapper record, along with the
// callback the caller uses to learn the new broadcast index once the
// rewrite completes.
type RewriteRecord struct {
	Payload []byte

	// SetIndex is invoked with the record's new byte offset once the
	// rewrite has been committed.
	SetIndex func(index uint32)
}

// Rewrite rebuilds the store file from scratch out of records, which the
// caller (Control) has already gathered from the in-memory broadcastable
// set: every live channel_announcement, the current channel_update(s) for
// it, and the endpoint node_announcement(s). The new file is written to a
// temporary path and renamed into place atomically; each record's
// SetIndex callback fires only after the rename succeeds.
func (s *Store) Rewrite(records []RewriteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".rewrite"
	tmpFile, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create rewrite temp file: %w", err)
	}

	if _, err := tmpFile.Write([]byte{storeVersion}); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}

	offsets := make([]uint32, len(records))
	offset := int64(1)
	for i, rec := range records {
		offsets[i] = uint32(offset)

		var header [recordHeaderLen]byte
		binary.BigEndian.PutUint32(header[0:4], uint32(len(rec.Payload)))
		binary.BigEndian.PutUint32(header[4:8],
			crc32.Checksum(rec.Payload, crc32cTable))

		if _, err := tmpFile.Write(header[:]); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return err
		}
		if _, err := tmpFile.Write(rec.Payload); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return err
		}
		offset += recordHeaderLen + int64(len(rec.Payload))
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}

	if s.file != nil {
		s.file.Close()
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		tmpFile.Close()
		return fmt.Errorf("unable to rename rewritten store into place: %w", err)
	}

	s.file = tmpFile
	s.count = uint32(len(records))
	s.disabled = false

	for i, rec := range records {
		rec.SetIndex(offsets[i])
	}

	return nil
}
