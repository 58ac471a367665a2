package library

type apiResponse struct {
	MediaContainer mediaContainer `json:"MediaContainer"`
}

type mediaContainer struct {
	Size              int         `json:"size"`
	TotalSize         int         `json:"totalSize,omitempty"`
	Offset            int         `json:"offset,omitempty"`
	MachineIdentifier string      `json:"machineIdentifier,omitempty"`
	Directory         []directory `json:"Directory,omitempty"`
	Metadata          []metadata  `json:"Metadata,omitempty"`
}

type guid struct {
	ID string `json:"id"`
}

type directory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type metadata struct {
	RatingKey   string `json:"ratingKey"`
	Key         string `json:"key"`
	GUID        string `json:"guid,omitempty"`
	Guids       []guid `json:"Guid,omitempty"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	Index       int    `json:"index,omitempty"`
	ParentIndex int    `json:"parentIndex,omitempty"`
}

func (m metadata) guidIDs() []string {
	if len(m.Guids) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.Guids))
	for _, g := range m.Guids {
		if g.ID != "" {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

func (m metadata) toShow() Show {
	return Show{
		Key:   m.RatingKey,
		Title: m.Title,
		Year:  m.Year,
		Guids: m.guidIDs(),
		GUID:  m.GUID,
	}
}
