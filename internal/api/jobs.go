package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/newthinker/pipboard/internal/api/job"
	"github.com/newthinker/pipboard/internal/api/response"
	"github.com/newthinker/pipboard/internal/core"
	"go.uber.org/zap"
)

func (s *Server) startBuildJob(w http.ResponseWriter, pair string) {
	if !slices.Contains(s.deps.App.Pairs(), pair) {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("unknown pair %q", pair)))
		return
	}

	j := s.jobs.Create(pair)
	s.wg.Add(1)
	go s.runBuildJob(j.ID, pair)

	w.Header().Set("Location", "/api/jobs/"+j.ID)
	response.JSON(w, http.StatusAccepted, j)
}

func (s *Server) runBuildJob(id, pair string) {
	defer s.wg.Done()
	log := s.logger.With(zap.String("job_id", id), zap.String("pair", pair))

	s.jobs.Update(id, func(j *job.Job) { j.Status = job.StatusRunning })
	results, err := s.deps.App.RunOnce(s.baseCtx, true, pair)
	if err != nil {
		log.Warn("background build failed", zap.Error(err))
		s.jobs.Update(id, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = err.Error()
		})
		return
	}
	s.jobs.Update(id, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = results
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrNoData) {
			status = http.StatusNotFound
		}
		response.Error(w, status, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}
