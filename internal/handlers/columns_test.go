package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"taskboard/backend/internal/handlers"
	"taskboard/backend/internal/models"
	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockColumnService struct {
	mock.Mock
}

func (m *MockColumnService) ListColumns(ctx context.Context, actor, workspaceID uuid.UUID) ([]models.Column, error) {
	args := m.Called(ctx, actor, workspaceID)
	columns, _ := args.Get(0).([]models.Column)
	return columns, args.Error(1)
}

func (m *MockColumnService) CreateColumn(ctx context.Context, actor, workspaceID uuid.UUID, name, color string) (models.Column, error) {
	args := m.Called(ctx, actor, workspaceID, name, color)
	return args.Get(0).(models.Column), args.Error(1)
}

func (m *MockColumnService) UpdateColumn(ctx context.Context, actor, columnID uuid.UUID, update services.ColumnUpdate) (models.Column, error) {
	args := m.Called(ctx, actor, columnID, update)
	return args.Get(0).(models.Column), args.Error(1)
}

func (m *MockColumnService) DeleteColumn(ctx context.Context, actor, columnID uuid.UUID, reassignTo *uuid.UUID) error {
	return m.Called(ctx, actor, columnID, reassignTo).Error(0)
}

func (m *MockColumnService) ReorderColumn(ctx context.Context, actor, columnID uuid.UUID, newPosition int) (services.ReorderResult, error) {
	args := m.Called(ctx, actor, columnID, newPosition)
	return args.Get(0).(services.ReorderResult), args.Error(1)
}

type ColumnHandlerTestSuite struct {
	suite.Suite
	service  *MockColumnService
	columnID uuid.UUID
	path     string
	do       func(method, path string, body interface{}) (int, string)
}

func (s *ColumnHandlerTestSuite) SetupTest() {
	s.service = &MockColumnService{}
	handler := handlers.NewColumnHandler(s.service)

	router := newRouter(true)
	router.GET("/workspaces/:workspace_id/columns", handler.ListColumns)
	router.POST("/workspaces/:workspace_id/columns", handler.CreateColumn)
	router.PATCH("/columns/:id", handler.UpdateColumn)
	router.DELETE("/columns/:id", handler.DeleteColumn)
	router.PUT("/columns/:id/position", handler.ReorderColumn)

	s.columnID = uuid.Must(uuid.NewV4())
	s.path = "/columns/" + s.columnID.String()
	s.do = func(method, path string, body interface{}) (int, string) {
		w := doJSON(router, method, path, body)
		return w.Code, w.Body.String()
	}
}

func (s *ColumnHandlerTestSuite) TearDownTest() {
	s.service.AssertExpectations(s.T())
}

func (s *ColumnHandlerTestSuite) TestListColumns() {
	workspaceID := uuid.Must(uuid.NewV4())
	s.service.On("ListColumns", mock.Anything, testUserID, workspaceID).
		Return([]models.Column{{Name: "To Do", Position: 0}, {Name: "Done", Position: 1}}, nil)

	code, body := s.do("GET", "/workspaces/"+workspaceID.String()+"/columns", nil)

	s.Equal(http.StatusOK, code)
	s.Contains(body, `"name":"To Do"`)
}

func (s *ColumnHandlerTestSuite) TestCreateColumnAtLimit() {
	workspaceID := uuid.Must(uuid.NewV4())
	s.service.On("CreateColumn", mock.Anything, testUserID, workspaceID, "Blocked", "red").
		Return(models.Column{}, fmt.Errorf("%w: workspace already has 4 columns", services.ErrLimitExceeded))

	code, body := s.do("POST", "/workspaces/"+workspaceID.String()+"/columns", `{"name":"Blocked","color":"red"}`)

	s.Equal(http.StatusConflict, code)
	s.Contains(body, "column limit reached")
}

func (s *ColumnHandlerTestSuite) TestCreateColumnRequiresName() {
	code, _ := s.do("POST", "/workspaces/"+uuid.Must(uuid.NewV4()).String()+"/columns", `{"color":"red"}`)
	s.Equal(http.StatusBadRequest, code)
}

func (s *ColumnHandlerTestSuite) TestUpdateColumn() {
	name := "Shipped"
	s.service.On("UpdateColumn", mock.Anything, testUserID, s.columnID, services.ColumnUpdate{Name: &name}).
		Return(models.Column{ID: s.columnID, Name: name}, nil)

	code, body := s.do("PATCH", s.path, `{"name":"Shipped"}`)

	s.Equal(http.StatusOK, code)
	s.Contains(body, `"name":"Shipped"`)
}

func (s *ColumnHandlerTestSuite) TestDeleteColumnWithReassign() {
	target := uuid.Must(uuid.NewV4())
	s.service.On("DeleteColumn", mock.Anything, testUserID, s.columnID, &target).Return(nil)

	code, _ := s.do("DELETE", s.path+"?reassign_to="+target.String(), nil)

	s.Equal(http.StatusNoContent, code)
}

func (s *ColumnHandlerTestSuite) TestDeleteColumnHasTasks() {
	s.service.On("DeleteColumn", mock.Anything, testUserID, s.columnID, (*uuid.UUID)(nil)).
		Return(fmt.Errorf("%w: 3 tasks", services.ErrHasTasks))

	code, body := s.do("DELETE", s.path, nil)

	s.Equal(http.StatusConflict, code)
	s.Contains(body, "column still has tasks")
}

func (s *ColumnHandlerTestSuite) TestDeleteColumnInvalidTarget() {
	s.service.On("DeleteColumn", mock.Anything, testUserID, s.columnID, mock.Anything).
		Return(fmt.Errorf("%w: column belongs to another workspace", services.ErrInvalidTarget))

	code, _ := s.do("DELETE", s.path+"?reassign_to="+uuid.Must(uuid.NewV4()).String(), nil)

	s.Equal(http.StatusUnprocessableEntity, code)
}

func (s *ColumnHandlerTestSuite) TestDeleteColumnBadReassignID() {
	code, _ := s.do("DELETE", s.path+"?reassign_to=nope", nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *ColumnHandlerTestSuite) TestReorderColumn() {
	s.service.On("ReorderColumn", mock.Anything, testUserID, s.columnID, 0).
		Return(services.ReorderResult{Success: true, Message: "Column moved to position 0"}, nil)

	code, body := s.do("PUT", s.path+"/position", `{"position":0}`)

	s.Equal(http.StatusOK, code)
	s.JSONEq(`{"success":true,"message":"Column moved to position 0"}`, body)
}

func (s *ColumnHandlerTestSuite) TestReorderColumnRejectsUncomputablePositions() {
	for _, body := range []string{
		`{"position":1.5}`,
		`{"position":1e300}`,
		`{"position":"two"}`,
		`{}`,
	} {
		code, _ := s.do("PUT", s.path+"/position", body)
		s.Equal(http.StatusBadRequest, code, body)
	}
	s.service.AssertNotCalled(s.T(), "ReorderColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ColumnHandlerTestSuite) TestReorderColumnPersistenceFailure() {
	s.service.On("ReorderColumn", mock.Anything, testUserID, s.columnID, 2).
		Return(services.ReorderResult{}, fmt.Errorf("Failed to reorder column: %w", services.ErrPersistence))

	code, _ := s.do("PUT", s.path+"/position", `{"position":2}`)

	s.Equal(http.StatusInternalServerError, code)
}

func TestColumnHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ColumnHandlerTestSuite))
}

type MockWorkspaceService struct {
	mock.Mock
}

func (m *MockWorkspaceService) CreateWorkspace(ctx context.Context, actor uuid.UUID, name string) (models.Workspace, error) {
	args := m.Called(ctx, actor, name)
	return args.Get(0).(models.Workspace), args.Error(1)
}

func (m *MockWorkspaceService) AddMember(ctx context.Context, actor, workspaceID, userID uuid.UUID, role models.Role) (models.WorkspaceMember, error) {
	args := m.Called(ctx, actor, workspaceID, userID, role)
	return args.Get(0).(models.WorkspaceMember), args.Error(1)
}

type MockBoardService struct {
	mock.Mock
}

func (m *MockBoardService) Board(ctx context.Context, actor, workspaceID uuid.UUID) (*services.Board, error) {
	args := m.Called(ctx, actor, workspaceID)
	board, _ := args.Get(0).(*services.Board)
	return board, args.Error(1)
}

func TestWorkspaceHandler(t *testing.T) {
	workspaces := &MockWorkspaceService{}
	boards := &MockBoardService{}
	handler := handlers.NewWorkspaceHandler(workspaces, boards)

	router := newRouter(true)
	router.POST("/workspaces", handler.CreateWorkspace)
	router.POST("/workspaces/:workspace_id/members", handler.AddMember)
	router.GET("/workspaces/:workspace_id/board", handler.GetBoard)

	workspaceID := uuid.Must(uuid.NewV4())
	memberID := uuid.Must(uuid.NewV4())

	t.Run("create", func(t *testing.T) {
		workspaces.On("CreateWorkspace", mock.Anything, testUserID, "Launch").
			Return(models.Workspace{ID: workspaceID, Name: "Launch", OwnerID: testUserID}, nil).Once()

		w := doJSON(router, "POST", "/workspaces", `{"name":"Launch"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("add member", func(t *testing.T) {
		workspaces.On("AddMember", mock.Anything, testUserID, workspaceID, memberID, models.RoleViewer).
			Return(models.WorkspaceMember{WorkspaceID: workspaceID, UserID: memberID, Role: models.RoleViewer}, nil).Once()

		w := doJSON(router, "POST", "/workspaces/"+workspaceID.String()+"/members",
			fmt.Sprintf(`{"user_id":%q,"role":"viewer"}`, memberID))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("board", func(t *testing.T) {
		boards.On("Board", mock.Anything, testUserID, workspaceID).
			Return(&services.Board{WorkspaceID: workspaceID, Columns: []services.ColumnView{
				{Column: models.Column{Name: "To Do"}, Tasks: []models.Task{{Title: "first", Position: 0.5}}},
			}}, nil).Once()

		w := doJSON(router, "GET", "/workspaces/"+workspaceID.String()+"/board", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"title":"first"`)
	})

	t.Run("board denied", func(t *testing.T) {
		other := uuid.Must(uuid.NewV4())
		boards.On("Board", mock.Anything, testUserID, other).
			Return(nil, fmt.Errorf("%w: not a member", services.ErrAccessDenied)).Once()

		w := doJSON(router, "GET", "/workspaces/"+other.String()+"/board", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	workspaces.AssertExpectations(t)
	boards.AssertExpectations(t)
}
