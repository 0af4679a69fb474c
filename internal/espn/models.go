package espn

type scoreboardResponse struct {
	Leagues []struct {
		Abbreviation string `json:"abbreviation"`
		Name         string `json:"name"`
	} `json:"leagues"`
	Events []event `json:"events"`
}

type event struct {
	ID           string        `json:"id"`
	Date         Time          `json:"date"`
	Name         string        `json:"name"`
	ShortName    string        `json:"shortName"`
	Competitions []competition `json:"competitions"`
	Status       status        `json:"status"`
}

type competition struct {
	ID          string       `json:"id"`
	Competitors []competitor `json:"competitors"`
	Status      status       `json:"status"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		DisplayName  string `json:"displayName"`
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
}

type status struct {
	DisplayClock string `json:"displayClock"`
	Period       int    `json:"period"`
	Type         struct {
		State       string `json:"state"`
		Completed   bool   `json:"completed"`
		Description string `json:"description"`
		ShortDetail string `json:"shortDetail"`
	} `json:"type"`
}

// Game states reported by the scoreboard.
const (
	StatePre  = "pre"
	StateIn   = "in"
	StatePost = "post"
)

// Game is a flattened scoreboard entry.
type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore string `json:"home_score"`
	AwayScore string `json:"away_score"`
	State     string `json:"state"`
	Detail    string `json:"detail"`
	StartTime Time   `json:"start_time"`
}
