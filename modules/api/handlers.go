package api

import (
	"github.com/example/task-sync/client/view"
	domain "github.com/example/task-sync/domain/task"
	"github.com/gofiber/fiber/v2"
)

func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	api := app.Group("/api/v1")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", m.register)
	authRoutes.Post("/login", m.login)
	authRoutes.Post("/refresh", m.refresh)

	users := api.Group("/users", AuthMiddleware(m.auth))
	if limit := m.rateLimit.Handler(); limit != nil {
		users.Use(limit)
	}

	users.Post("/:userId/tasks", m.createTask)
	users.Get("/:userId/tasks", m.listTasks)
	// Registered before /:taskId so "completed" is not taken for an id.
	users.Delete("/:userId/tasks/completed", m.clearCompleted)
	users.Get("/:userId/tasks/:taskId", m.getTask)
	users.Put("/:userId/tasks/:taskId/toggle", m.toggleTask)
	users.Patch("/:userId/tasks/:taskId", m.updateTask)
	users.Delete("/:userId/tasks/:taskId", m.deleteTask)
	users.Get("/:userId/activity", m.getActivity)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module": "api",
			"port":   m.port,
		},
	})
}

// register handles POST /api/v1/auth/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	user, err := m.auth.Register(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

// login handles POST /api/v1/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	tokens, err := m.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokens)
}

// refresh handles POST /api/v1/auth/refresh.
func (m *APIModule) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := m.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokens)
}

// createTask handles POST /api/v1/users/:userId/tasks.
func (m *APIModule) createTask(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tasks, err := m.tasks.Create(c.UserContext(), owner, domain.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(TaskListResponse{Data: tasks, Message: "Task created"})
}

// listTasks handles GET /api/v1/users/:userId/tasks?filter=all|pending|completed.
// Stats always count the unfiltered list.
func (m *APIModule) listTasks(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	mode, err := view.ParseMode(c.Query("filter"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	tasks, err := m.tasks.List(c.UserContext(), owner)
	if err != nil {
		return writeError(c, err)
	}
	stats := view.Stats(tasks)
	return c.JSON(TaskListResponse{Data: view.Filter(tasks, mode), Stats: &stats})
}

// getTask handles GET /api/v1/users/:userId/tasks/:taskId.
func (m *APIModule) getTask(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	t, err := m.tasks.Get(c.UserContext(), owner, c.Params("taskId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(TaskResponse{Data: t})
}

// toggleTask handles PUT /api/v1/users/:userId/tasks/:taskId/toggle.
func (m *APIModule) toggleTask(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	tasks, err := m.tasks.Toggle(c.UserContext(), owner, c.Params("taskId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(TaskListResponse{Data: tasks})
}

// updateTask handles PATCH /api/v1/users/:userId/tasks/:taskId.
func (m *APIModule) updateTask(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tasks, err := m.tasks.Update(c.UserContext(), owner, c.Params("taskId"), domain.Patch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(TaskListResponse{Data: tasks})
}

// deleteTask handles DELETE /api/v1/users/:userId/tasks/:taskId.
func (m *APIModule) deleteTask(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	tasks, err := m.tasks.Delete(c.UserContext(), owner, c.Params("taskId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(TaskListResponse{Data: tasks})
}

// clearCompleted handles DELETE /api/v1/users/:userId/tasks/completed.
func (m *APIModule) clearCompleted(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	tasks, err := m.tasks.ClearCompleted(c.UserContext(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(TaskListResponse{Data: tasks})
}

// getActivity handles GET /api/v1/users/:userId/activity.
func (m *APIModule) getActivity(c *fiber.Ctx) error {
	owner, ok, err := pathOwner(c)
	if !ok {
		return err
	}

	summary, err := m.activity.GetActivity(c.UserContext(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(ActivityResponse{Data: summary})
}
