package model

// Document is the normalized detail of a statute: a basic-info block plus the
// ordered article → paragraph → clause tree. Repeated elements are always
// slices; the API layer normalizes single elements into one-element slices.
type Document struct {
	BasicInfo *BasicInfo `json:"기본정보,omitempty"`
	Articles  []Article  `json:"조문,omitempty"`
}

// BasicInfo is the 기본정보 block of a statute detail.
type BasicInfo struct {
	Name          string `json:"법령명_한글"`
	PubDate       string `json:"공포일자"`
	PubNumber     string `json:"공포번호,omitempty"`
	EffectiveDate string `json:"시행일자"`
	RevisionType  string `json:"제개정구분,omitempty"`
	Ministry      string `json:"소관부처,omitempty"`
	Phone         string `json:"전화번호,omitempty"`
}

// Article is a 조문단위.
type Article struct {
	Number     string      `json:"조문번호,omitempty"`
	Title      string      `json:"조문제목,omitempty"`
	Content    string      `json:"조문내용,omitempty"`
	Paragraphs []Paragraph `json:"항,omitempty"`
}

// Paragraph is a 항.
type Paragraph struct {
	Number  string   `json:"항번호,omitempty"`
	Content string   `json:"항내용,omitempty"`
	Clauses []Clause `json:"호,omitempty"`
}

// Clause is a 호.
type Clause struct {
	Number  string `json:"호번호,omitempty"`
	Content string `json:"호내용,omitempty"`
}
