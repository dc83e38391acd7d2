package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gitlab.com/commonsward/commune/internal/db"
	"gitlab.com/commonsward/commune/internal/models"
)

func (routes *Routes) SpaceRouter(r chi.Router) {
	r.Get("/", routes.AppHandler(routes.GetSpaces))
	r.With(routes.EnforceAuth).Post("/", routes.AppHandler(routes.PostSpace))
	r.With(routes.EnforceAuth).Post("/{spaceID}/join", routes.AppHandler(routes.PostJoin))
	r.With(routes.EnforceAuth).Post("/{spaceID}/join-requests", routes.AppHandler(routes.PostJoinRequest))

	specific := r.With(routes.SpaceCtx)
	specific.Get("/{spaceID}", routes.AppHandler(routes.GetSpace))
	specific.Get("/{spaceID}/members", routes.AppHandler(routes.GetMembers))
	specific.Get("/{spaceID}/posts", routes.AppHandler(routes.GetPosts))
	specific.Get("/{spaceID}/posts/{postID}/comments", routes.AppHandler(routes.GetComments))

	auth := specific.With(routes.EnforceAuth)
	auth.Post("/{spaceID}/leave", routes.AppHandler(routes.PostLeave))
	auth.Post("/{spaceID}/posts", routes.AppHandler(routes.PostPost))
	auth.Post("/{spaceID}/posts/{postID}/comments", routes.AppHandler(routes.PostComment))
	auth.Put("/{spaceID}/posts/{postID}/reaction", routes.AppHandler(routes.PutReaction))
	auth.Delete("/{spaceID}/posts/{postID}/reaction", routes.AppHandler(routes.DeleteReaction))
	auth.Get("/{spaceID}/join-requests", routes.AppHandler(routes.GetJoinRequests))
	auth.Post("/{spaceID}/join-requests/{requestID}/approve", routes.AppHandler(routes.PostApprove))
	auth.Post("/{spaceID}/join-requests/{requestID}/reject", routes.AppHandler(routes.PostReject))
	auth.Post("/{spaceID}/members/{userID}/promote", routes.AppHandler(routes.PostPromote))
	auth.Post("/{spaceID}/members/{userID}/demote", routes.AppHandler(routes.PostDemote))
	auth.Post("/{spaceID}/members/{userID}/block", routes.AppHandler(routes.PostBlock))
	auth.Post("/{spaceID}/members/{userID}/unblock", routes.AppHandler(routes.PostUnblock))
	auth.Delete("/{spaceID}/members/{userID}", routes.AppHandler(routes.DeleteMember))
}

func (routes *Routes) SpaceCtx(next http.Handler) http.Handler {
	return routes.AppHandler(func(w http.ResponseWriter, r *http.Request) *AppError {
		spaceH, err := routes.db.GetSpaceH(r.Context(), chi.URLParam(r, "spaceID"), userH(r))
		if err != nil {
			return appErrorFor(err)
		}
		ctx := context.WithValue(r.Context(), SpaceHCtxKey, spaceH)
		next.ServeHTTP(w, r.WithContext(ctx))
		return nil
	})
}

func spaceH(r *http.Request) *db.SpaceH {
	return r.Context().Value(SpaceHCtxKey).(*db.SpaceH)
}

func (routes *Routes) GetSpaces(w http.ResponseWriter, r *http.Request) *AppError {
	spaces, err := routes.db.ListSpaces(r.Context(), userH(r))
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, spaces)
	return nil
}

func (routes *Routes) PostSpace(w http.ResponseWriter, r *http.Request) *AppError {
	var req models.SpaceReq
	if err := decodeJSON(r, &req); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}
	spaceH, err := routes.db.CreateSpace(r.Context(), *userH(r), &req)
	if err != nil {
		return appErrorFor(err)
	}
	view, err := spaceH.ReadView(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusCreated, view)
	return nil
}

func (routes *Routes) GetSpace(w http.ResponseWriter, r *http.Request) *AppError {
	view, err := spaceH(r).ReadView(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, view)
	return nil
}

func (routes *Routes) PostJoin(w http.ResponseWriter, r *http.Request) *AppError {
	if err := routes.db.Join(r.Context(), chi.URLParam(r, "spaceID"), *userH(r)); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) PostLeave(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).Leave(r.Context()); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) GetMembers(w http.ResponseWriter, r *http.Request) *AppError {
	members, err := spaceH(r).ListMembers(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, members)
	return nil
}

func (routes *Routes) PostJoinRequest(w http.ResponseWriter, r *http.Request) *AppError {
	var body struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}
	req, err := routes.db.RequestJoin(r.Context(), chi.URLParam(r, "spaceID"), *userH(r), body.Message)
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusCreated, req)
	return nil
}

func (routes *Routes) GetJoinRequests(w http.ResponseWriter, r *http.Request) *AppError {
	reqs, err := spaceH(r).ListPendingRequests(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, reqs)
	return nil
}

func (routes *Routes) PostApprove(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).ApproveJoinRequest(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) PostReject(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).RejectJoinRequest(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) PostPromote(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).Promote(r.Context(), chi.URLParam(r, "userID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) PostDemote(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).Demote(r.Context(), chi.URLParam(r, "userID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) PostBlock(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).Block(r.Context(), chi.URLParam(r, "userID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) PostUnblock(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).Unblock(r.Context(), chi.URLParam(r, "userID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) DeleteMember(w http.ResponseWriter, r *http.Request) *AppError {
	if err := spaceH(r).Remove(r.Context(), chi.URLParam(r, "userID")); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) GetPosts(w http.ResponseWriter, r *http.Request) *AppError {
	posts, err := spaceH(r).ListPosts(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, posts)
	return nil
}

func (routes *Routes) PostPost(w http.ResponseWriter, r *http.Request) *AppError {
	var post models.Post
	if err := decodeJSON(r, &post); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}
	if _, err := spaceH(r).CreatePost(r.Context(), &post); err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusCreated, post)
	return nil
}

func (routes *Routes) GetComments(w http.ResponseWriter, r *http.Request) *AppError {
	postH, err := spaceH(r).GetPostH(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		return appErrorFor(err)
	}
	comments, err := postH.ListComments(r.Context())
	if err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusOK, comments)
	return nil
}

func (routes *Routes) PostComment(w http.ResponseWriter, r *http.Request) *AppError {
	postH, err := spaceH(r).GetPostH(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		return appErrorFor(err)
	}
	var comment models.Comment
	if err := decodeJSON(r, &comment); err != nil {
		return &AppError{Message: "malformed body", Code: http.StatusBadRequest, Cause: err}
	}
	if err := postH.CreateComment(r.Context(), &comment); err != nil {
		return appErrorFor(err)
	}
	renderJSON(w, http.StatusCreated, comment)
	return nil
}

func (routes *Routes) PutReaction(w http.ResponseWriter, r *http.Request) *AppError {
	postH, err := spaceH(r).GetPostH(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		return appErrorFor(err)
	}
	if err := postH.React(r.Context()); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (routes *Routes) DeleteReaction(w http.ResponseWriter, r *http.Request) *AppError {
	postH, err := spaceH(r).GetPostH(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		return appErrorFor(err)
	}
	if err := postH.Unreact(r.Context()); err != nil {
		return appErrorFor(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
