package segment

// state is the segmenter's position in a section's marker stream.
type state int

const (
	InSection state = iota
	InDirectionBlock
	InQuestionBody
	InQuestionWithDirection
)

func (s state) String() string {
	switch s {
	case InSection:
		return "in_section"
	case InDirectionBlock:
		return "in_direction_block"
	case InQuestionBody:
		return "in_question_body"
	case InQuestionWithDirection:
		return "in_question_with_direction"
	}
	return "unknown"
}

type action uint8

const (
	closeDirection action = 1 << iota
	closeQuestion
	openDirection
	openQuestion
)

type transition struct {
	next    state
	actions action
}

// transitions is the complete table: every (state, event) pair is listed.
// A direction span closes at the next marker of any kind; a question span
// closes only at the next question marker or the end of the section.
var transitions = map[state]map[eventKind]transition{
	InSection: {
		evDirection: {InDirectionBlock, openDirection},
		evQuestion:  {InQuestionBody, openQuestion},
		evEnd:       {InSection, 0},
	},
	InDirectionBlock: {
		evDirection: {InDirectionBlock, closeDirection | openDirection},
		evQuestion:  {InQuestionBody, closeDirection | openQuestion},
		evEnd:       {InSection, closeDirection},
	},
	InQuestionBody: {
		evDirection: {InQuestionWithDirection, openDirection},
		evQuestion:  {InQuestionBody, closeQuestion | openQuestion},
		evEnd:       {InSection, closeQuestion},
	},
	InQuestionWithDirection: {
		evDirection: {InQuestionWithDirection, closeDirection | openDirection},
		evQuestion:  {InQuestionBody, closeDirection | closeQuestion | openQuestion},
		evEnd:       {InSection, closeDirection | closeQuestion},
	},
}

// span is a closed region of the section body opened by marker ev.
type span struct {
	ev         event
	start, end int
}

// spans holds the output of one walk.
type spans struct {
	directions []span
	questions  []span
}

// walk drives the state machine over events and returns the closed spans.
// The section length terminates the stream.
func walk(events []event, length int) spans {
	var (
		out       spans
		st        = InSection
		dir, ques *span
	)
	feed := func(ev event) {
		t := transitions[st][ev.kind]
		if t.actions&closeDirection != 0 && dir != nil {
			dir.end = ev.start
			out.directions = append(out.directions, *dir)
			dir = nil
		}
		if t.actions&closeQuestion != 0 && ques != nil {
			ques.end = ev.start
			out.questions = append(out.questions, *ques)
			ques = nil
		}
		if t.actions&openDirection != 0 {
			dir = &span{ev: ev, start: ev.start}
		}
		if t.actions&openQuestion != 0 {
			ques = &span{ev: ev, start: ev.start}
		}
		st = t.next
	}
	for _, ev := range events {
		feed(ev)
	}
	feed(event{kind: evEnd, start: length, end: length})
	return out
}
