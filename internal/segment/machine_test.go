package segment

import (
	"reflect"
	"testing"
)

func TestTransitions_Complete(t *testing.T) {
	for _, st := range []state{InSection, InDirectionBlock, InQuestionBody, InQuestionWithDirection} {
		for _, ev := range []eventKind{evDirection, evQuestion, evEnd} {
			if _, ok := transitions[st][ev]; !ok {
				t.Errorf("no transition for %s on event %d", st, ev)
			}
		}
	}
}

func TestWalk_Spans(t *testing.T) {
	// D(0) Q(10) D(20) Q(30) end(50)
	events := []event{
		{kind: evDirection, start: 0, end: 5},
		{kind: evQuestion, start: 10, end: 12, number: 1},
		{kind: evDirection, start: 20, end: 25},
		{kind: evQuestion, start: 30, end: 32, number: 2},
	}
	sp := walk(events, 50)

	var dirs, qs [][2]int
	for _, d := range sp.directions {
		dirs = append(dirs, [2]int{d.start, d.end})
	}
	for _, q := range sp.questions {
		qs = append(qs, [2]int{q.start, q.end})
	}
	if want := [][2]int{{0, 10}, {20, 30}}; !reflect.DeepEqual(dirs, want) {
		t.Errorf("directions = %v, want %v", dirs, want)
	}
	if want := [][2]int{{10, 30}, {30, 50}}; !reflect.DeepEqual(qs, want) {
		t.Errorf("questions = %v, want %v", qs, want)
	}
}

func TestWalk_DirectionRunsToEnd(t *testing.T) {
	sp := walk([]event{{kind: evDirection, start: 3, end: 8}}, 40)
	if len(sp.directions) != 1 || sp.directions[0].end != 40 {
		t.Errorf("directions = %+v", sp.directions)
	}
	if len(sp.questions) != 0 {
		t.Errorf("questions = %+v", sp.questions)
	}
}

func TestWalk_Empty(t *testing.T) {
	sp := walk(nil, 10)
	if len(sp.directions) != 0 || len(sp.questions) != 0 {
		t.Errorf("spans = %+v", sp)
	}
}

func TestScanMarkers_Priority(t *testing.T) {
	body := "<em>Directions for questions 1 to 2:</em>\n<strong>1.</strong> a\n2. b"
	evs := scanMarkers(body, true)
	var kinds []eventKind
	for _, e := range evs {
		kinds = append(kinds, e.kind)
	}
	if want := []eventKind{evDirection, evQuestion, evQuestion}; !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if evs[0].from != 1 || evs[0].to != 2 || evs[0].singular {
		t.Errorf("direction = %+v", evs[0])
	}
	if evs[1].plain || !evs[2].plain {
		t.Errorf("plain flags = %v %v", evs[1].plain, evs[2].plain)
	}

	if n := len(scanMarkers(body, false)); n != 2 {
		t.Errorf("without plain markers: %d events, want 2", n)
	}
}

func TestScanMarkers_Reversed(t *testing.T) {
	evs := scanMarkers("<strong>Directions for questions 7 - 4</strong>", false)
	if len(evs) != 1 || evs[0].from != 4 || evs[0].to != 7 {
		t.Errorf("events = %+v", evs)
	}
}
