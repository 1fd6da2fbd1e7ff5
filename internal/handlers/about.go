package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

func About(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Parallel",
		"description": "A decision-making social platform where users post binary choices, vote on others' decisions, and compete on AI-powered leaderboards.",
		"version":     Version,
		"features": []string{
			"Post binary decision dilemmas",
			"Vote on community decisions",
			"AI-powered consequence predictions",
			"Personality analysis based on decisions",
			"Life area analysis and recommendations",
			"Consensus-based recommendations from similar decisions",
			"Follow other users",
			"Competitive leaderboards",
		},
	})
}

func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Parallel API is running"})
}
