package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/darasa-app/gumzo/core/attachment"
)

func imageMsg(id string, at time.Time) Message {
	return Message{
		ID:        id,
		Kind:      KindImage,
		CreatedAt: at,
		Attachment: &attachment.Descriptor{
			URL:      "http://storage.test/" + id + ".png",
			FileName: id + ".png",
			FileType: "image/png",
		},
	}
}

func textMsg(id string, at time.Time) Message {
	return Message{ID: id, Kind: KindText, Content: "hey", CreatedAt: at}
}

func imageRun(n int, start time.Time) []Message {
	msgs := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, imageMsg(fmt.Sprintf("img%d", i), start.Add(time.Duration(i)*time.Second)))
	}
	return msgs
}

func TestGroupCollages(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name         string
		messages     []Message
		wantCollages int
	}{
		{name: "empty", messages: nil, wantCollages: 0},
		{name: "run of 3 renders individually", messages: imageRun(3, now), wantCollages: 0},
		{name: "run of 4 groups", messages: imageRun(4, now), wantCollages: 1},
		{name: "run of 5 yields no group", messages: imageRun(5, now), wantCollages: 0},
		{name: "run of 8 yields no group", messages: imageRun(8, now), wantCollages: 0},
		{
			name: "two runs of 4 split by text",
			messages: append(append(imageRun(4, now),
				textMsg("t1", now.Add(5*time.Second))),
				imageRun(4, now.Add(6*time.Second))...),
			wantCollages: 2,
		},
		{
			name: "deleted image breaks the run",
			messages: []Message{
				imageMsg("a", now),
				imageMsg("b", now.Add(time.Second)),
				{ID: "c", Kind: KindImage, IsDeleted: true, CreatedAt: now.Add(2 * time.Second)},
				imageMsg("d", now.Add(3 * time.Second)),
				imageMsg("e", now.Add(4 * time.Second)),
			},
			wantCollages: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collages := GroupCollages(tt.messages)
			if len(collages) != tt.wantCollages {
				t.Errorf("GroupCollages() = %d collages; want %d", len(collages), tt.wantCollages)
			}
			for _, c := range collages {
				if len(c.Messages) != CollageSize {
					t.Errorf("collage size = %d; want %d", len(c.Messages), CollageSize)
				}
			}
		})
	}
}

func TestGroupCollages_preservesOrder(t *testing.T) {
	now := time.Now().UTC()
	msgs := imageRun(4, now)

	collages := GroupCollages(msgs)
	if len(collages) != 1 {
		t.Fatalf("GroupCollages() = %d collages; want 1", len(collages))
	}
	for i, m := range collages[0].Messages {
		if m.ID != msgs[i].ID {
			t.Errorf("collage message %d = %s; want %s", i, m.ID, msgs[i].ID)
		}
	}
}

func TestUngrouped(t *testing.T) {
	now := time.Now().UTC()
	msgs := append(imageRun(4, now), textMsg("t1", now.Add(5*time.Second)))

	collages := GroupCollages(msgs)
	rest := Ungrouped(msgs, collages)

	if len(rest) != 1 || rest[0].ID != "t1" {
		t.Errorf("Ungrouped() = %v; want just t1", rest)
	}
}
