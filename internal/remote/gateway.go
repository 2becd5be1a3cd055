package remote

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/pbaille/pulsetrack/internal/domain"
)

// Gateway maps planner records onto remote tables, scoped to one user
type Gateway struct {
	db   Adapter
	auth Auth
}

// NewGateway creates a gateway over a row store and an auth provider.
func NewGateway(db Adapter, auth Auth) *Gateway {
	return &Gateway{db: db, auth: auth}
}

// Session returns the signed-in session, or nil.
func (g *Gateway) Session(ctx context.Context) (*Session, error) {
	if g.auth == nil {
		return nil, nil
	}
	return g.auth.GetSession(ctx)
}

// OnAuthStateChange forwards to the auth provider.
func (g *Gateway) OnAuthStateChange(fn func(*Session)) func() {
	if g.auth == nil {
		return func() {}
	}
	return g.auth.OnAuthStateChange(fn)
}

// LoadSnapshot fetches every table for the session user in parallel and
// assembles a full state. Badges are never stored remotely and come back
// empty. ActiveGradeScaleID is empty when no scale is flagged active.
func (g *Gateway) LoadSnapshot(ctx context.Context, sess *Session) (domain.State, error) {
	userID := sess.UserID
	byUser := []Filter{Eq("user_id", userID)}

	var (
		profiles, terms, classes, resources, uploads, items []Row
		assignments, logs, notes, scales, ranges            []Row
		categories, changelog, pulses                       []Row
	)
	fetches := []struct {
		table string
		q     Query
		out   *[]Row
	}{
		{TableProfiles, Query{Filters: []Filter{Eq("id", userID)}}, &profiles},
		{TableTerms, Query{Filters: byUser, OrderBy: []Order{{Column: "start_date", Desc: true}}}, &terms},
		{TableClasses, Query{Filters: byUser, OrderBy: []Order{{Column: "created_at", Desc: true}}}, &classes},
		{TableClassResources, Query{Filters: byUser}, &resources},
		{TableSyllabusUploads, Query{Filters: byUser}, &uploads},
		{TableSyllabusItems, Query{Filters: byUser}, &items},
		{TableAssignments, Query{Filters: byUser, OrderBy: []Order{{Column: "due_date"}}}, &assignments},
		{TableStudyLogs, Query{Filters: byUser}, &logs},
		{TableNotes, Query{Filters: byUser, OrderBy: []Order{{Column: "updated_at", Desc: true}}}, &notes},
		{TableGradeScales, Query{Filters: byUser}, &scales},
		{TableGradeRanges, Query{Filters: byUser, OrderBy: []Order{{Column: "position"}}}, &ranges},
		{TableWeightCategories, Query{Filters: byUser}, &categories},
		{TableChangelog, Query{Filters: byUser, OrderBy: []Order{{Column: "at", Desc: true}}}, &changelog},
		{TableWorkloadPulses, Query{Filters: byUser, OrderBy: []Order{{Column: "date", Desc: true}}}, &pulses},
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, f := range fetches {
		eg.Go(func() error {
			rows, err := g.db.SelectAll(egCtx, f.table, f.q)
			if err != nil {
				return fmt.Errorf("select %s: %w", f.table, err)
			}
			*f.out = rows
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return domain.State{}, err
	}

	state := domain.State{
		User: domain.UserProfile{ID: userID, Email: sess.Email},
	}
	state.User.Name = orDefault(sess.Name, DefaultUserName)
	if len(profiles) > 0 {
		state.User.Name = orDefault(asString(profiles[0]["name"]), state.User.Name)
		state.User.Email = orDefault(sess.Email, asString(profiles[0]["email"]))
	}

	for _, r := range terms {
		state.Terms = append(state.Terms, termFromRow(r))
	}
	state.Classes = assembleClasses(classes, resources, uploads, items)
	state.Assignments = assembleAssignments(assignments, logs)
	for _, r := range notes {
		state.Notes = append(state.Notes, noteFromRow(r))
	}
	state.GradeScales, state.ActiveGradeScaleID = assembleScales(scales, ranges)
	for _, r := range categories {
		cat := domain.WeightCategory{ID: asString(r["id"]), Label: asString(r["label"])}
		cat.Weight, _ = asFloat(r["weight"])
		state.WeightCategories = append(state.WeightCategories, cat)
	}
	for _, r := range changelog {
		state.Changelog = append(state.Changelog, domain.ChangelogItem{
			ID:      asString(r["id"]),
			Type:    domain.ChangeType(asString(r["type"])),
			Message: asString(r["message"]),
			At:      asTime(r["at"]),
		})
	}
	for _, r := range pulses {
		state.WorkloadPulses = append(state.WorkloadPulses, domain.WorkloadPulse{
			ID:        asString(r["id"]),
			Level:     domain.WorkloadLevel(asString(r["level"])),
			Date:      asString(r["date"]),
			CreatedAt: asTime(r["created_at"]),
		})
	}
	return state, nil
}

func assembleClasses(classes, resources, uploads, items []Row) []domain.ClassItem {
	itemsByUpload := make(map[string][]domain.ExtractedItem)
	for _, r := range items {
		uploadID := asString(r["upload_id"])
		itemsByUpload[uploadID] = append(itemsByUpload[uploadID], domain.ExtractedItem{
			ID:        asString(r["id"]),
			Type:      domain.ExtractedKind(asString(r["type"])),
			Title:     asString(r["title"]),
			Date:      asString(r["date"]),
			Time:      asString(r["time"]),
			Ambiguous: asBool(r["ambiguous"]),
			Notes:     asString(r["notes"]),
		})
	}
	uploadsByClass := make(map[string][]domain.SyllabusUpload)
	for _, r := range uploads {
		classID := asString(r["class_id"])
		id := asString(r["id"])
		extracted := itemsByUpload[id]
		if extracted == nil {
			extracted = []domain.ExtractedItem{}
		}
		uploadsByClass[classID] = append(uploadsByClass[classID], domain.SyllabusUpload{
			ID:             id,
			FileName:       asString(r["file_name"]),
			ObjectURL:      asString(r["object_url"]),
			ExtractedItems: extracted,
		})
	}
	resourcesByClass := make(map[string][]domain.ResourceLink)
	for _, r := range resources {
		classID := asString(r["class_id"])
		resourcesByClass[classID] = append(resourcesByClass[classID], domain.ResourceLink{
			ID:    asString(r["id"]),
			Label: asString(r["label"]),
			URL:   asString(r["url"]),
		})
	}

	out := make([]domain.ClassItem, 0, len(classes))
	for _, r := range classes {
		c := classFromRow(r)
		if res, ok := resourcesByClass[c.ID]; ok {
			c.Resources = res
		}
		if up, ok := uploadsByClass[c.ID]; ok {
			c.SyllabusUploads = up
		}
		out = append(out, c)
	}
	return out
}

func assembleAssignments(assignments, logs []Row) []domain.Assignment {
	logsByAssignment := make(map[string][]domain.StudyLog)
	for _, r := range logs {
		id := asString(r["assignment_id"])
		logsByAssignment[id] = append(logsByAssignment[id], domain.StudyLog{
			ID:      asString(r["id"]),
			Minutes: asInt(r["minutes"], 0),
			Date:    asString(r["date"]),
		})
	}

	out := make([]domain.Assignment, 0, len(assignments))
	for _, r := range assignments {
		a := assignmentFromRow(r)
		if l, ok := logsByAssignment[a.ID]; ok {
			a.StudyLogs = l
		}
		out = append(out, a)
	}
	return out
}

func assembleScales(scales, ranges []Row) ([]domain.GradeScale, string) {
	rangesByScale := make(map[string][]domain.GradeRange)
	for _, r := range ranges {
		id := asString(r["scale_id"])
		gr := domain.GradeRange{Label: asString(r["label"])}
		gr.Min, _ = asFloat(r["min"])
		gr.Max, _ = asFloat(r["max"])
		rangesByScale[id] = append(rangesByScale[id], gr)
	}

	var activeID string
	out := make([]domain.GradeScale, 0, len(scales))
	for _, r := range scales {
		s := domain.GradeScale{
			ID:     asString(r["id"]),
			Name:   orDefault(asString(r["name"]), DefaultScaleName),
			Ranges: rangesByScale[asString(r["id"])],
		}
		if s.Ranges == nil {
			s.Ranges = []domain.GradeRange{}
		}
		if activeID == "" && asBool(r["active"]) {
			activeID = s.ID
		}
		out = append(out, s)
	}
	return out, activeID
}

// SaveProfile upserts the user's profile row.
func (g *Gateway) SaveProfile(ctx context.Context, userID string, user domain.UserProfile) error {
	row := Row{"id": userID, "user_id": userID, "name": user.Name, "email": user.Email}
	if err := g.db.Upsert(ctx, TableProfiles, row); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// SaveTerm upserts a term.
func (g *Gateway) SaveTerm(ctx context.Context, userID string, term domain.Term) error {
	if err := g.db.Upsert(ctx, TableTerms, termRow(userID, term)); err != nil {
		return fmt.Errorf("save term: %w", err)
	}
	return nil
}

// DeleteTerm removes a term.
func (g *Gateway) DeleteTerm(ctx context.Context, userID, id string) error {
	if err := g.db.DeleteWhere(ctx, TableTerms, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}

// SetActiveTerm clears the active flag on all of the user's terms, then
// sets it on id.
func (g *Gateway) SetActiveTerm(ctx context.Context, userID, id string) error {
	return g.setActive(ctx, TableTerms, userID, id)
}

func (g *Gateway) setActive(ctx context.Context, table, userID, id string) error {
	if err := g.db.Update(ctx, table, Row{"active": false}, Eq("user_id", userID)); err != nil {
		return fmt.Errorf("clear active %s: %w", table, err)
	}
	if id == "" {
		return nil
	}
	if err := g.db.Update(ctx, table, Row{"active": true}, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("set active %s: %w", table, err)
	}
	return nil
}

// SaveClass upserts a class and replaces its resources, uploads and
// extracted items.
func (g *Gateway) SaveClass(ctx context.Context, userID string, class domain.ClassItem) error {
	if err := g.db.Upsert(ctx, TableClasses, classRow(userID, class)); err != nil {
		return fmt.Errorf("save class: %w", err)
	}
	if err := g.deleteClassChildren(ctx, userID, class.ID); err != nil {
		return err
	}

	resources := make([]Row, 0, len(class.Resources))
	for _, res := range class.Resources {
		resources = append(resources, Row{
			"id": res.ID, "user_id": userID, "class_id": class.ID, "label": res.Label, "url": res.URL,
		})
	}
	if err := g.db.Upsert(ctx, TableClassResources, resources...); err != nil {
		return fmt.Errorf("save class resources: %w", err)
	}

	var uploads, items []Row
	for _, up := range class.SyllabusUploads {
		uploads = append(uploads, Row{
			"id": up.ID, "user_id": userID, "class_id": class.ID,
			"file_name": up.FileName, "object_url": nullable(up.ObjectURL),
		})
		for _, item := range up.ExtractedItems {
			items = append(items, Row{
				"id":        item.ID,
				"user_id":   userID,
				"class_id":  class.ID,
				"upload_id": up.ID,
				"type":      string(item.Type),
				"title":     item.Title,
				"date":      item.Date,
				"time":      nullable(item.Time),
				"ambiguous": item.Ambiguous,
				"notes":     nullable(item.Notes),
			})
		}
	}
	if err := g.db.Upsert(ctx, TableSyllabusUploads, uploads...); err != nil {
		return fmt.Errorf("save syllabus uploads: %w", err)
	}
	if err := g.db.Upsert(ctx, TableSyllabusItems, items...); err != nil {
		return fmt.Errorf("save syllabus items: %w", err)
	}
	return nil
}

func (g *Gateway) deleteClassChildren(ctx context.Context, userID, classID string) error {
	for _, table := range []string{TableClassResources, TableSyllabusItems, TableSyllabusUploads} {
		if err := g.db.DeleteWhere(ctx, table, Eq("class_id", classID), Eq("user_id", userID)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// DeleteClass removes a class and its children.
func (g *Gateway) DeleteClass(ctx context.Context, userID, id string) error {
	if err := g.deleteClassChildren(ctx, userID, id); err != nil {
		return err
	}
	if err := g.db.DeleteWhere(ctx, TableClasses, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// SaveAssignment upserts an assignment and replaces its study logs.
func (g *Gateway) SaveAssignment(ctx context.Context, userID string, a domain.Assignment) error {
	if err := g.db.Upsert(ctx, TableAssignments, assignmentRow(userID, a)); err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	if err := g.db.DeleteWhere(ctx, TableStudyLogs, Eq("assignment_id", a.ID), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("clear study logs: %w", err)
	}
	logs := make([]Row, 0, len(a.StudyLogs))
	for _, l := range a.StudyLogs {
		logs = append(logs, Row{
			"id": l.ID, "user_id": userID, "assignment_id": a.ID, "minutes": l.Minutes, "date": nullable(l.Date),
		})
	}
	if err := g.db.Upsert(ctx, TableStudyLogs, logs...); err != nil {
		return fmt.Errorf("save study logs: %w", err)
	}
	return nil
}

// DeleteAssignment removes an assignment and its study logs.
func (g *Gateway) DeleteAssignment(ctx context.Context, userID, id string) error {
	if err := g.db.DeleteWhere(ctx, TableStudyLogs, Eq("assignment_id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("clear study logs: %w", err)
	}
	if err := g.db.DeleteWhere(ctx, TableAssignments, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// SaveNote upserts a note.
func (g *Gateway) SaveNote(ctx context.Context, userID string, note domain.NoteItem) error {
	if err := g.db.Upsert(ctx, TableNotes, noteRow(userID, note)); err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}

// DeleteNote removes a note.
func (g *Gateway) DeleteNote(ctx context.Context, userID, id string) error {
	if err := g.db.DeleteWhere(ctx, TableNotes, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// SaveGradeScale upserts a scale with its active flag and replaces its
// ranges. Range IDs derive from the scale ID and position, so overlapping
// saves of the same scale converge on one set of rows.
func (g *Gateway) SaveGradeScale(ctx context.Context, userID string, scale domain.GradeScale, active bool) error {
	row := Row{"id": scale.ID, "user_id": userID, "name": scale.Name, "active": active}
	if err := g.db.Upsert(ctx, TableGradeScales, row); err != nil {
		return fmt.Errorf("save grade scale: %w", err)
	}
	if err := g.db.DeleteWhere(ctx, TableGradeRanges, Eq("scale_id", scale.ID), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("clear grade ranges: %w", err)
	}
	ranges := make([]Row, 0, len(scale.Ranges))
	for i, r := range scale.Ranges {
		ranges = append(ranges, Row{
			"id": rangeID(scale.ID, i), "user_id": userID, "scale_id": scale.ID,
			"position": i, "label": r.Label, "min": r.Min, "max": r.Max,
		})
	}
	if err := g.db.Upsert(ctx, TableGradeRanges, ranges...); err != nil {
		return fmt.Errorf("save grade ranges: %w", err)
	}
	return nil
}

func rangeID(scaleID string, position int) string {
	return scaleID + ":" + strconv.Itoa(position)
}

// DeleteGradeScale removes a scale and its ranges.
func (g *Gateway) DeleteGradeScale(ctx context.Context, userID, id string) error {
	if err := g.db.DeleteWhere(ctx, TableGradeRanges, Eq("scale_id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("clear grade ranges: %w", err)
	}
	if err := g.db.DeleteWhere(ctx, TableGradeScales, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("delete grade scale: %w", err)
	}
	return nil
}

// SetActiveGradeScale clears the active flag on all of the user's scales,
// then sets it on id.
func (g *Gateway) SetActiveGradeScale(ctx context.Context, userID, id string) error {
	return g.setActive(ctx, TableGradeScales, userID, id)
}

// SaveWeightCategories replaces the user's weight categories.
func (g *Gateway) SaveWeightCategories(ctx context.Context, userID string, categories []domain.WeightCategory) error {
	if err := g.db.DeleteWhere(ctx, TableWeightCategories, Eq("user_id", userID)); err != nil {
		return fmt.Errorf("clear weight categories: %w", err)
	}
	rows := make([]Row, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, Row{"id": c.ID, "user_id": userID, "label": c.Label, "weight": c.Weight})
	}
	if err := g.db.Upsert(ctx, TableWeightCategories, rows...); err != nil {
		return fmt.Errorf("save weight categories: %w", err)
	}
	return nil
}

// AppendChangelog inserts a changelog entry.
func (g *Gateway) AppendChangelog(ctx context.Context, userID string, item domain.ChangelogItem) error {
	row := Row{
		"id": item.ID, "user_id": userID, "type": string(item.Type),
		"message": item.Message, "at": timestamp(item.At),
	}
	if err := g.db.Upsert(ctx, TableChangelog, row); err != nil {
		return fmt.Errorf("append changelog: %w", err)
	}
	return nil
}

// SaveWorkloadPulse upserts a workload check-in.
func (g *Gateway) SaveWorkloadPulse(ctx context.Context, userID string, p domain.WorkloadPulse) error {
	row := Row{
		"id": p.ID, "user_id": userID, "level": string(p.Level),
		"date": p.Date, "created_at": timestamp(p.CreatedAt),
	}
	if err := g.db.Upsert(ctx, TableWorkloadPulses, row); err != nil {
		return fmt.Errorf("save workload pulse: %w", err)
	}
	return nil
}

// DeleteWorkloadPulse removes a workload check-in.
func (g *Gateway) DeleteWorkloadPulse(ctx context.Context, userID, id string) error {
	if err := g.db.DeleteWhere(ctx, TableWorkloadPulses, Eq("id", id), Eq("user_id", userID)); err != nil {
		return fmt.Errorf("delete workload pulse: %w", err)
	}
	return nil
}
