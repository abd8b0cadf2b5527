package vndb

import (
	"encoding/json"
	"fmt"
)

// VisualNovel is one "vn" item with the basic, details, stats, screens and
// tags flags requested.
type VisualNovel struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Original      string         `json:"original"`
	Released      string         `json:"released"`
	Languages     []string       `json:"languages"`
	OrigLang      []string       `json:"orig_lang"`
	Platforms     []string       `json:"platforms"`
	Aliases       string         `json:"aliases"`
	Length        int            `json:"length"`
	Description   string         `json:"description"`
	Links         *Links         `json:"links"`
	Image         string         `json:"image"`
	ImageNSFW     bool           `json:"image_nsfw"`
	ImageFlagging *ImageFlagging `json:"image_flagging"`
	Anime         []Anime        `json:"anime"`
	Relations     []Relation     `json:"relations"`
	Tags          []VNTag        `json:"tags"`
	Popularity    float64        `json:"popularity"`
	Rating        float64        `json:"rating"`
	VoteCount     int            `json:"votecount"`
	Screens       []Screen       `json:"screens"`
	Staff         []Staff        `json:"staff"`
}

// Links holds external identifiers of a visual novel.
type Links struct {
	Wikipedia string `json:"wikipedia"`
	Renai     string `json:"renai"`
	Encubed   string `json:"encubed"`
	Wikidata  string `json:"wikidata"`
}

type ImageFlagging struct {
	VoteCount   int     `json:"votecount"`
	SexualAvg   float64 `json:"sexual_avg"`
	ViolenceAvg float64 `json:"violence_avg"`
}

type Screen struct {
	Image    string         `json:"image"`
	RID      int            `json:"rid"`
	NSFW     bool           `json:"nsfw"`
	Flagging *ImageFlagging `json:"flagging"`
	Height   int            `json:"height"`
	Width    int            `json:"width"`
}

type Relation struct {
	ID       int    `json:"id"`
	Relation string `json:"relation"`
	Title    string `json:"title"`
	Original string `json:"original"`
	Official bool   `json:"official"`
}

type Anime struct {
	ID          int    `json:"id"`
	AnnID       int    `json:"ann_id"`
	NfoID       string `json:"nfo_id"`
	TitleRomaji string `json:"title_romaji"`
	TitleKanji  string `json:"title_kanji"`
	Year        int    `json:"year"`
	Type        string `json:"type"`
}

type Staff struct {
	SID      int    `json:"sid"`
	AID      int    `json:"aid"`
	Name     string `json:"name"`
	Original string `json:"original"`
	Role     string `json:"role"`
	Note     string `json:"note"`
}

// VNTag is a [tag id, score, spoiler level] triple. Only tags with a
// positive score are sent.
type VNTag struct {
	ID      int
	Score   float64
	Spoiler int
}

func (t *VNTag) UnmarshalJSON(b []byte) error {
	var raw []float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("vndb: tag tuple has %d elements", len(raw))
	}
	t.ID = int(raw[0])
	t.Score = raw[1]
	if len(raw) > 2 {
		t.Spoiler = int(raw[2])
	}
	return nil
}

func (t VNTag) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{float64(t.ID), t.Score, float64(t.Spoiler)})
}
