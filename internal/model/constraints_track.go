package model

import (
	"fmt"

	"github.com/noah-isme/sek-scheduler/internal/cpsat"
)

// postC15 posts course-track synchronisation: every course in a track runs
// at exactly the same (day, period) set as every other course in that
// track, so students can move between them without a timetable clash
// (spec §4.4 C15).
func (b *Builder) postC15() {
	for _, trackID := range b.dm.CourseTrackIDs() {
		track := b.dm.CourseTracks[trackID]
		if len(track.CourseIDs) < 2 {
			continue
		}
		ref := track.CourseIDs[0]
		for _, other := range track.CourseIDs[1:] {
			for _, sk := range b.idx.All() {
				refVar, refOK := b.result.ActC[ClassSlotKey{Class: ref, Day: sk.Day, Period: sk.Period}]
				otherVar, otherOK := b.result.ActC[ClassSlotKey{Class: other, Day: sk.Day, Period: sk.Period}]
				if !refOK || !otherOK {
					continue
				}
				name := fmt.Sprintf("C15:%s:%s:%s:%d:%d", trackID, ref, other, sk.Day, sk.Period)
				b.result.CP.AddLinear(name, []cpsat.Term{{Var: refVar, Coeff: 1}, {Var: otherVar, Coeff: -1}}, cpsat.EQ, 0)
			}
		}
	}
}
