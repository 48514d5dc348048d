package session

import "testing"

func TestParseInputBuiltinCommand(t *testing.T) {
	p := ParseInput("/tools list extra")
	if !p.IsSlash || p.Command != "tools" || p.Argument != "list extra" {
		t.Fatalf("unexpected parse: %+v", p)
	}
}

func TestParseInputDirectInvocation(t *testing.T) {
	p := ParseInput("github_search_issues {\"q\":\"bug\"}")
	if p.IsSlash {
		t.Fatalf("expected non-slash input to not be slash: %+v", p)
	}
}

func TestExtractPrefixStripsFirstUnderscore(t *testing.T) {
	if got := ExtractPrefix("chess_create_game"); got != "chess" {
		t.Fatalf("got %q, want chess", got)
	}
	if got := ExtractPrefix("standalone"); got != "standalone" {
		t.Fatalf("got %q, want standalone (no underscore)", got)
	}
}

func TestIsEntryPointByMarker(t *testing.T) {
	if !IsEntryPoint("chess__chess_create_game", []string{"name"}) {
		t.Fatal("expected create to be an entry point")
	}
	if !IsEntryPoint("chess__chess_make_move", nil) {
		t.Fatal("expected tool with no required params to be an entry point")
	}
}

func TestIsDependentRequiresIDSuffix(t *testing.T) {
	if !IsDependent([]string{"game_id"}) {
		t.Fatal("expected game_id to mark dependent")
	}
	if IsDependent([]string{"name"}) {
		t.Fatal("expected name not to mark dependent")
	}
}

func TestClassifyGatedToolHiddenUntilPrerequisiteCalled(t *testing.T) {
	state := NewState()
	prereqs := DefaultPrerequisites()
	tool := ToolInfo{WireName: "dev__run_tests", OriginalName: "run_tests", Required: []string{"suite"}}

	if Classify(tool, state, prereqs) != Hidden {
		t.Fatal("expected run_tests hidden before set_project_root called")
	}
	state.MarkPrerequisiteCalled("set_project_root")
	if Classify(tool, state, prereqs) != Visible {
		t.Fatal("expected run_tests visible after set_project_root called")
	}
}

func TestClassifyDependentVisibleAfterIDSeen(t *testing.T) {
	state := NewState()
	tool := ToolInfo{WireName: "chess__chess_make_move", OriginalName: "chess_make_move", Required: []string{"game_id"}}
	if Classify(tool, state, nil) != Hidden {
		t.Fatal("expected hidden before any game_id seen or create recorded")
	}
	state.RecordID("game_id", "abc123")
	if Classify(tool, state, nil) != Visible {
		t.Fatal("expected visible once game_id seen")
	}
}

func TestClassifyDependentVisibleAfterCreateFallback(t *testing.T) {
	state := NewState()
	tool := ToolInfo{WireName: "chess__chess_make_move", OriginalName: "chess_make_move", Required: []string{"game_id"}}
	state.RecordCreated("chess", nil)
	if Classify(tool, state, nil) != Visible {
		t.Fatal("expected visible via prefix-create fallback")
	}
}

func TestFuzzyScoreExactPrefixScoresHigh(t *testing.T) {
	if FuzzyScore("run", "run_tests") <= FuzzyScore("run", "analyze_coverage") {
		t.Fatal("expected prefix match to outscore scattered match")
	}
}

func TestFuzzyScoreUnmatchedResidualIsZero(t *testing.T) {
	if FuzzyScore("xyz123notfound", "run_tests") != 0 {
		t.Fatal("expected unmatched residual to score 0")
	}
}

func TestResolveExactWireNameWins(t *testing.T) {
	candidates := []Candidate{
		{WireName: "github__search_issues", OriginalName: "search_issues", StrippedName: "search_issues"},
		{WireName: "gitlab__search_issues", OriginalName: "search_issues", StrippedName: "search_issues"},
	}
	res := Resolve("github__search_issues", candidates)
	if !res.Found || res.Candidate.WireName != "github__search_issues" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveAmbiguousReportsTopThree(t *testing.T) {
	candidates := []Candidate{
		{WireName: "a__search_issues", OriginalName: "search_issues", StrippedName: "search_issues"},
		{WireName: "b__search_issue", OriginalName: "search_issue", StrippedName: "search_issue"},
		{WireName: "c__search_issue_comments", OriginalName: "search_issue_comments", StrippedName: "search_issue_comments"},
	}
	res := Resolve("srch", candidates)
	if !res.Found {
		t.Fatal("expected a resolution to be found")
	}
	if !res.Ambiguous || len(res.TopThree) != 3 {
		t.Fatalf("expected an ambiguous resolution listing three candidates, got %+v", res)
	}
}

func TestAssembleArgsFillsFromSessionState(t *testing.T) {
	state := NewState()
	state.RecordID("game_id", "g1")
	schema := []ParamSchema{{Name: "game_id", Type: "string", Required: true}}
	args, err := AssembleArgs("", schema, state, nil)
	if err != nil {
		t.Fatalf("expected assembly to succeed, got %v", err)
	}
	if args["game_id"] != "g1" {
		t.Fatalf("expected game_id filled from session state, got %v", args["game_id"])
	}
}

func TestAssembleArgsUserOverridesDefault(t *testing.T) {
	state := NewState()
	schema := []ParamSchema{{Name: "limit", Type: "integer", Default: float64(10)}}
	args, err := AssembleArgs(`{"limit": 5}`, schema, state, nil)
	if err != nil {
		t.Fatalf("expected assembly to succeed, got %v", err)
	}
	if args["limit"] != float64(5) {
		t.Fatalf("expected user value to win, got %v", args["limit"])
	}
}

func TestAssembleArgsInvalidJSONAborts(t *testing.T) {
	state := NewState()
	schema := []ParamSchema{{Name: "limit", Type: "integer"}}
	_, err := AssembleArgs(`{not valid json`, schema, state, nil)
	if err == nil {
		t.Fatal("expected malformed JSON arguments to abort assembly")
	}
}

func TestAssembleArgsMissingRequiredWithoutPrompterAborts(t *testing.T) {
	state := NewState()
	schema := []ParamSchema{{Name: "game_id", Type: "string", Required: true}}
	_, err := AssembleArgs("", schema, state, nil)
	if err == nil {
		t.Fatal("expected missing required parameter to abort assembly when no prompter is available")
	}
}

func TestRecordCallOutcomeSkipsOnError(t *testing.T) {
	state := NewState()
	tool := ToolInfo{WireName: "chess__chess_create_game", OriginalName: "chess_create_game"}
	RecordCallOutcome(state, tool, `{"game_id":"g1"}`, true, nil)
	if state.HasAnyID("game_id") {
		t.Fatal("expected no bookkeeping on error")
	}
}

func TestRecordCallOutcomeRecordsCreateIDs(t *testing.T) {
	state := NewState()
	tool := ToolInfo{WireName: "chess__chess_create_game", OriginalName: "chess_create_game"}
	RecordCallOutcome(state, tool, `{"game_id":"g1"}`, false, nil)
	if !state.HasAnyID("game_id") {
		t.Fatal("expected game_id recorded")
	}
	if !state.HasCreated("chess") {
		t.Fatal("expected create recorded under chess prefix")
	}
}

func TestRecordCreatedIsAppendOnly(t *testing.T) {
	state := NewState()
	state.RecordCreated("chess", []string{"g1"})
	state.RecordCreated("chess", []string{"g2"})
	got := state.Created["chess"]
	if len(got) != 2 || got[0] != "g1" || got[1] != "g2" {
		t.Fatalf("expected append-only history [g1 g2], got %v", got)
	}
}
