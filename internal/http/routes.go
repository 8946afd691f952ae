package http

import (
	"net/http"
	"strconv"
	"strings"
)

type Handlers struct {
	Users           *UserHandler
	Books           *BookHandler
	Library         *LibraryHandler
	Recommendations *RecommendationHandler
	Finished        *FinishedHandler
	Plank           *PlankHandler
}

// NewRouter wires every route onto a fresh mux. Health endpoints are left
// to the caller, which owns the database pool.
func NewRouter(h Handlers, jwtSecret string) *http.ServeMux {
	mux := http.NewServeMux()
	protect := AuthMiddleware(jwtSecret)

	mux.HandleFunc("/users/register", methodFunc(http.MethodPost, h.Users.RegisterUser))
	mux.HandleFunc("/users/login", methodFunc(http.MethodPost, h.Users.LoginUser))
	mux.HandleFunc("/users/refresh", methodFunc(http.MethodPost, h.Users.RefreshToken))
	mux.HandleFunc("/users/logout", methodFunc(http.MethodPost, h.Users.LogoutUser))

	mux.Handle("/me", protect(http.HandlerFunc(methodFunc(http.MethodGet, h.Users.GetCurrentUser))))
	mux.Handle("/me/library-card", protect(http.HandlerFunc(methodFunc(http.MethodPut, h.Users.UpdateLibraryCard))))

	mux.Handle("/books", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Books.List(w, r)
		case http.MethodPost:
			h.Books.Add(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/books/", protect(http.HandlerFunc(h.bookRoutes)))

	mux.Handle("/library/editions", protect(http.HandlerFunc(methodFunc(http.MethodGet, h.Library.Editions))))
	mux.Handle("/library/holds", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Library.ListHolds(w, r)
		case http.MethodPost:
			h.Library.PlaceHold(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/library/holds/", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holdID := strings.TrimPrefix(r.URL.Path, "/library/holds/")
		if holdID == "" || strings.Contains(holdID, "/") {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.Library.CancelHold(w, r, holdID)
	})))

	mux.Handle("/recommendations", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Recommendations.List(w, r)
		case http.MethodPost:
			h.Recommendations.Add(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/recommendations/", protect(intIDHandler("/recommendations/", func(w http.ResponseWriter, r *http.Request, id int) {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.Recommendations.Delete(w, r, id)
	})))

	mux.Handle("/finished", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Finished.List(w, r)
		case http.MethodPost:
			h.Finished.Add(w, r)
		default:
			methodNotAllowed(w)
		}
	})))
	mux.Handle("/finished/", protect(intIDHandler("/finished/", func(w http.ResponseWriter, r *http.Request, id int) {
		switch r.Method {
		case http.MethodPut:
			h.Finished.Update(w, r, id)
		case http.MethodDelete:
			h.Finished.Delete(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})))

	mux.HandleFunc("/plank/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Plank.ListUsers(w, r)
		case http.MethodPost:
			h.Plank.AddUser(w, r)
		default:
			methodNotAllowed(w)
		}
	})
	mux.HandleFunc("/plank/times", methodFunc(http.MethodPost, h.Plank.RecordTime))
	mux.HandleFunc("/plank/leaderboard", methodFunc(http.MethodGet, h.Plank.Leaderboard))
	mux.HandleFunc("/plank/history", methodFunc(http.MethodGet, h.Plank.History))

	return mux
}

func (h Handlers) bookRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	if len(parts) == 1 {
		switch parts[0] {
		case "":
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		case "genres":
			methodFunc(http.MethodGet, h.Books.GenreCounts)(w, r)
		case "import":
			methodFunc(http.MethodPost, h.Books.ImportCSV)(w, r)
		default:
			if r.Method != http.MethodDelete {
				methodNotAllowed(w)
				return
			}
			h.Books.Delete(w, r, parts[0])
		}
		return
	}

	if len(parts) != 2 {
		JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	bookID := parts[0]
	switch parts[1] {
	case "pin":
		requireMethod(w, r, http.MethodPost, func() { h.Books.TogglePin(w, r, bookID) })
	case "notes":
		requireMethod(w, r, http.MethodPut, func() { h.Books.UpdateNotes(w, r, bookID) })
	case "culture":
		requireMethod(w, r, http.MethodPatch, func() { h.Books.UpdateCulture(w, r, bookID) })
	case "refresh":
		requireMethod(w, r, http.MethodPost, func() { h.Books.Refresh(w, r, bookID) })
	default:
		JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func methodFunc(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w)
			return
		}
		next(w, r)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string, fn func()) {
	if r.Method != method {
		methodNotAllowed(w)
		return
	}
	fn()
}

func intIDHandler(prefix string, fn func(http.ResponseWriter, *http.Request, int)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.URL.Path, prefix)
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		fn(w, r, id)
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}
