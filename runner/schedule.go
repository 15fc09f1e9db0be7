package runner

// opKind identifies the operation a schedule slot asks the worker to
// perform.
type opKind uint8

const (
	opRead opKind = iota
	opInsert
	opInsertRMW
	opUpdate
)

func (op opKind) String() string {
	switch op {
	case opRead:
		return "read"
	case opInsert:
		return "insert"
	case opInsertRMW:
		return "insert_rmw"
	case opUpdate:
		return "update"
	}
	return "unknown"
}

// scheduleSize is the cycle length of the mixed-workload schedule; the
// mix percentages map directly onto slots.
const scheduleSize = 100

// schedule is the cyclic operation sequence a worker replays. The zero
// value is all reads.
type schedule [scheduleSize]opKind

// buildMixSchedule spreads the requested insert and update percentages
// over an all-read schedule, inserts first.
func buildMixSchedule(inserts, updates int, rmw bool) schedule {
	var s schedule
	if inserts > 0 {
		op := opInsert
		if rmw {
			op = opInsertRMW
		}
		s.fill(op, inserts)
	}
	if updates > 0 {
		s.fill(opUpdate, updates)
	}
	return s
}

// fill replaces cnt read slots with op, jumping a stride of
// scheduleSize/cnt between placements to spread them roughly evenly.
// The spacing is approximate when cnt does not divide the schedule
// evenly; the mix proportions are exact regardless.
func (s *schedule) fill(op opKind, cnt int) {
	jump := scheduleSize / cnt
	p := 0
	for i := 0; i < cnt; i++ {
		for s[p] != opRead {
			p++
			if p == scheduleSize {
				p = 0
			}
		}
		s[p] = op
		if p+jump >= scheduleSize {
			p = 0
		} else {
			p += jump
		}
	}
}
