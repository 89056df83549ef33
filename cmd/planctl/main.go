// Command planctl solves a routing problem from the command line: load a
// problem file (or a location CSV), fetch the travel-time matrix when one is
// not given inline, solve, and print the route report.
//
// Exit codes: 0 solved, 2 infeasible, 3 time limit exceeded, 1 other error.
package main

import (
    "context"
    "encoding/json"
    "errors"
    "flag"
    "fmt"
    "log"
    "os"
    "time"

    "github.com/joho/godotenv"

    "routeplan/internal/config"
    "routeplan/internal/matrix"
    "routeplan/internal/model"
    "routeplan/internal/report"
    "routeplan/internal/search"
    "routeplan/internal/solver"
)

func main() {
    _ = godotenv.Load()
    cfgPath := flag.String("config", "", "path to config.yaml (optional)")
    problemPath := flag.String("problem", "", "problem file (JSON, same schema as POST /v1/plans)")
    locationsPath := flag.String("locations", "", "location CSV (label,lat,lng); matrix is fetched from the provider")
    horizon := flag.Int64("horizon", 0, "max route duration (overrides problem file)")
    serviceTime := flag.Int64("service", 0, "service time per visited stop (overrides problem file)")
    limitSec := flag.Float64("limit", 0, "search limit in seconds (overrides problem file and config)")
    seed := flag.Int64("seed", 0, "search seed (overrides problem file and config)")
    flag.Parse()

    cfg, err := config.Load(*cfgPath)
    if err != nil {
        log.Fatalf("config: %v", err)
    }

    var req model.PlanRequest
    switch {
    case *problemPath != "":
        raw, err := os.ReadFile(*problemPath)
        if err != nil {
            log.Fatalf("read problem: %v", err)
        }
        if err := json.Unmarshal(raw, &req); err != nil {
            log.Fatalf("parse problem: %v", err)
        }
    case *locationsPath != "":
        locs, err := config.ReadLocationsCSV(*locationsPath)
        if err != nil {
            log.Fatalf("read locations: %v", err)
        }
        req.Locations = locs
        // single vehicle based at the first location unless a problem file says otherwise
        req.Vehicles = []model.Vehicle{{Start: 0, End: 0}}
    default:
        log.Fatalf("either -problem or -locations is required")
    }
    if *horizon > 0 {
        req.Horizon = *horizon
    }
    if *serviceTime > 0 {
        req.ServiceTime = *serviceTime
    }
    if *limitSec > 0 {
        req.SearchLimitSeconds = *limitSec
    }
    if *seed != 0 {
        req.Seed = *seed
    }

    ctx := context.Background()
    mat := req.Matrix
    if mat == nil {
        if cfg.Matrix.APIKey == "" {
            log.Fatalf("no inline matrix and no MATRIX_API_KEY configured")
        }
        dm := matrix.NewDistanceMatrixAI(matrix.Config{
            BaseURL:   cfg.Matrix.BaseURL,
            APIKey:    cfg.Matrix.APIKey,
            Dimension: cfg.Matrix.Dimension,
            Timeout:   cfg.Matrix.MatrixTimeout(),
            RPS:       cfg.Matrix.RPS,
        })
        var provider matrix.Provider = dm
        if cfg.RedisURL != "" {
            if c, err := matrix.NewCached(dm, cfg.RedisURL, dm.CacheScope(), cfg.Matrix.CacheTTL()); err == nil {
                provider = c
            }
        }
        m, err := provider.Matrix(ctx, req.Locations)
        if err != nil {
            log.Fatalf("matrix: %v", err)
        }
        mat = m
    }

    p, err := model.New(req.Locations, mat, req.Vehicles, req.Horizon, req.ServiceTime)
    if err != nil {
        log.Fatalf("problem: %v", err)
    }

    limit := time.Duration(req.SearchLimitSeconds * float64(time.Second))
    if req.SearchLimitSeconds == 0 {
        limit = time.Duration(cfg.Solver.SearchLimitSeconds * float64(time.Second))
    }
    s := req.Seed
    if s == 0 {
        s = cfg.Solver.Seed
    }
    eng := search.New(s)
    if cfg.Solver.StallLimit > 0 {
        eng.StallLimit = cfg.Solver.StallLimit
    }
    if cfg.Solver.MaxIterations > 0 {
        eng.MaxIterations = cfg.Solver.MaxIterations
    }

    start := time.Now()
    sol, err := solver.Solve(ctx, p, eng, limit)
    elapsed := time.Since(start)
    switch {
    case err == nil:
        report.Write(os.Stdout, p, sol)
        fmt.Printf("Solved in %v\n", elapsed.Round(time.Millisecond))
    case errors.Is(err, solver.ErrInfeasible):
        fmt.Fprintf(os.Stderr, "infeasible: %v\n", err)
        os.Exit(2)
    case errors.Is(err, solver.ErrTimeLimit):
        fmt.Fprintf(os.Stderr, "time limit exceeded after %v\n", elapsed.Round(time.Millisecond))
        os.Exit(3)
    default:
        log.Fatalf("solve: %v", err)
    }
}
